package job

import (
	"context"

	"github.com/xxxsen/compbot/internal/service"
)

// NewsDigestJob runs the daily headline digest and pushes it to Lark.
type NewsDigestJob struct {
	svc *service.NewsService
}

func NewNewsDigestJob(svc *service.NewsService) *NewsDigestJob {
	return &NewsDigestJob{svc: svc}
}

func (j *NewsDigestJob) Name() string {
	return "news_digest"
}

func (j *NewsDigestJob) Run(ctx context.Context) error {
	if j.svc == nil {
		return nil
	}
	_, err := j.svc.Run(ctx, "")
	return err
}
