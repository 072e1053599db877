package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/compbot/internal/ai"
	"github.com/xxxsen/compbot/internal/chunker"
	"github.com/xxxsen/compbot/internal/model"
	apperr "github.com/xxxsen/compbot/internal/pkg/errors"
)

// ChunkStore is the persistence half of the vector index.
type ChunkStore interface {
	SaveBatch(ctx context.Context, entries []*model.IndexEntry) error
	Search(ctx context.Context, vec []float32, topK int) ([]*model.RetrievalResult, error)
	Count(ctx context.Context) (int64, error)
	SourceCount(ctx context.Context) (int64, error)
	DeleteByDocument(ctx context.Context, documentName string) (int64, error)
	Clear(ctx context.Context) error
}

// IndexService owns the ingestion and similarity-search flows: chunk,
// embed as one batch, upsert; or embed a query and rank by cosine distance.
type IndexService struct {
	store      ChunkStore
	embedder   ai.IEmbedder
	chunker    *chunker.Chunker
	collection string
	timeout    time.Duration
}

func NewIndexService(store ChunkStore, embedder ai.IEmbedder, ck *chunker.Chunker, collection string, timeout time.Duration) *IndexService {
	return &IndexService{
		store:      store,
		embedder:   embedder,
		chunker:    ck,
		collection: collection,
		timeout:    timeout,
	}
}

func ChunkID(documentName string, ordinal int) string {
	return fmt.Sprintf("%s_%d", documentName, ordinal)
}

// AddDocuments ingests documents atomically: every chunk of the batch is
// embedded in a single provider call and written in one transaction, or
// nothing is written at all.
func (s *IndexService) AddDocuments(ctx context.Context, docs []model.Document) error {
	logger := logutil.GetLogger(ctx)
	chunks := s.chunker.ChunkDocuments(ctx, docs)
	if len(chunks) == 0 {
		logger.Warn("no chunks to index", zap.Int("documents", len(docs)))
		return nil
	}

	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	vectors, err := s.embedder.EmbedBatch(embedCtx, texts, ai.TaskRetrievalDocument)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrEmbedding, err)
	}
	// A short batch means misaligned chunk/vector pairs; refuse the lot.
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", apperr.ErrEmbedding, len(vectors), len(chunks))
	}

	now := time.Now()
	entries := make([]*model.IndexEntry, 0, len(chunks))
	for i, chunk := range chunks {
		entries = append(entries, &model.IndexEntry{
			ID:           ChunkID(chunk.DocumentName, chunk.Ordinal),
			DocumentName: chunk.DocumentName,
			Ordinal:      chunk.Ordinal,
			Text:         chunk.Text,
			Embedding:    vectors[i],
			Metadata: map[string]string{
				"document_name": chunk.DocumentName,
				"total_chunks":  strconv.Itoa(chunk.TotalChunks),
				"timestamp":     now.UTC().Format(time.RFC3339),
			},
			Ctime: now.UnixMilli(),
		})
	}
	if err := s.store.SaveBatch(ctx, entries); err != nil {
		return fmt.Errorf("%w: save batch: %v", apperr.ErrIndex, err)
	}
	logger.Info("indexed documents",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(entries)))
	return nil
}

// Search embeds the query and returns the topK nearest chunks, closest
// first. An empty collection returns an empty result, not an error.
func (s *IndexService) Search(ctx context.Context, query string, topK int) ([]*model.RetrievalResult, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count: %v", apperr.ErrIndex, err)
	}
	if count == 0 {
		logutil.GetLogger(ctx).Warn("vector index is empty")
		return nil, nil
	}
	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	vectors, err := s.embedder.EmbedBatch(embedCtx, []string{query}, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one query", apperr.ErrEmbedding, len(vectors))
	}
	results, err := s.store.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", apperr.ErrIndex, err)
	}
	return results, nil
}

func (s *IndexService) Stats(ctx context.Context) (*model.CollectionStats, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count: %v", apperr.ErrIndex, err)
	}
	sources, err := s.store.SourceCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: source count: %v", apperr.ErrIndex, err)
	}
	return &model.CollectionStats{
		CollectionName: s.collection,
		DocumentCount:  count,
		SourceCount:    sources,
	}, nil
}

func (s *IndexService) DeleteDocument(ctx context.Context, documentName string) (int64, error) {
	deleted, err := s.store.DeleteByDocument(ctx, documentName)
	if err != nil {
		return 0, fmt.Errorf("%w: delete: %v", apperr.ErrIndex, err)
	}
	return deleted, nil
}

func (s *IndexService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: clear: %v", apperr.ErrIndex, err)
	}
	return nil
}
