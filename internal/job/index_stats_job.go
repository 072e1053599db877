package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/compbot/internal/service"
)

// IndexStatsJob periodically logs the size of the vector index so operators
// can spot a wiped or stale collection from the logs alone.
type IndexStatsJob struct {
	svc *service.IndexService
}

func NewIndexStatsJob(svc *service.IndexService) *IndexStatsJob {
	return &IndexStatsJob{svc: svc}
}

func (j *IndexStatsJob) Name() string {
	return "index_stats"
}

func (j *IndexStatsJob) Run(ctx context.Context) error {
	if j.svc == nil {
		return nil
	}
	stats, err := j.svc.Stats(ctx)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("index stats",
		zap.String("collection", stats.CollectionName),
		zap.Int64("chunks", stats.DocumentCount),
		zap.Int64("sources", stats.SourceCount))
	return nil
}
