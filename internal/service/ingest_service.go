package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/compbot/internal/docstore"
	"github.com/xxxsen/compbot/internal/ingest"
	"github.com/xxxsen/compbot/internal/model"
	apperr "github.com/xxxsen/compbot/internal/pkg/errors"
)

// IngestService manages the document corpus: single uploads, full reloads
// from the docstore and per-document deletion.
type IngestService struct {
	loader *ingest.Loader
	store  docstore.Store
	index  *IndexService
}

func NewIngestService(loader *ingest.Loader, store docstore.Store, index *IndexService) *IngestService {
	return &IngestService{loader: loader, store: store, index: index}
}

// Upload indexes the submitted documents as one atomic batch and persists
// the source texts to the docstore. Indexing happens first so a docstore
// write failure never leaves an unsearchable document behind.
func (s *IngestService) Upload(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("%w: at least one document is required", apperr.ErrInvalid)
	}
	prepared := make([]model.Document, 0, len(docs))
	for _, doc := range docs {
		name := strings.TrimSpace(doc.Name)
		if name == "" || strings.TrimSpace(doc.Text) == "" {
			return fmt.Errorf("%w: document name and text are required", apperr.ErrInvalid)
		}
		content := doc.Text
		if strings.EqualFold(filepath.Ext(name), ".md") {
			content = ingest.FlattenMarkdown(doc.Text)
		}
		prepared = append(prepared, model.Document{Name: name, Text: content})
	}
	if err := s.index.AddDocuments(ctx, prepared); err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.store.Save(ctx, strings.TrimSpace(doc.Name), []byte(doc.Text)); err != nil {
			logutil.GetLogger(ctx).Warn("document indexed but not archived",
				zap.String("name", doc.Name), zap.Error(err))
		}
	}
	return nil
}

// Reload reads the whole corpus from the docstore and reindexes it. The
// id scheme makes this an upsert: existing chunks are overwritten in place.
func (s *IngestService) Reload(ctx context.Context) (int, error) {
	docs, err := s.loader.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load corpus: %w", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := s.index.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Delete removes every indexed chunk of one document. The archived source
// file, if any, stays in the docstore.
func (s *IngestService) Delete(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: document name is required", apperr.ErrInvalid)
	}
	return s.index.DeleteDocument(ctx, name)
}
