package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/compbot/internal/chunker"
	"github.com/xxxsen/compbot/internal/model"
	apperr "github.com/xxxsen/compbot/internal/pkg/errors"
)

type spaceTokenizer struct{}

func (spaceTokenizer) Encode(text string) ([]int, error) {
	return make([]int, len(strings.Fields(text))), nil
}

func (spaceTokenizer) Decode(tokens []int) (string, error) {
	return "", fmt.Errorf("decode not expected in tests")
}

// fakeEmbedder returns canned vectors per text. Unknown texts embed to a
// fixed direction so batches always line up unless shortBy is set.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	shortBy int
	calls   int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			vec = []float32{1, 0, 0}
		}
		out = append(out, vec)
	}
	if f.shortBy > 0 && len(out) >= f.shortBy {
		out = out[:len(out)-f.shortBy]
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

// memStore is an in-memory ChunkStore ranking by exact cosine distance.
type memStore struct {
	entries map[string]*model.IndexEntry
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]*model.IndexEntry{}}
}

func (m *memStore) SaveBatch(ctx context.Context, entries []*model.IndexEntry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	for _, entry := range entries {
		m.entries[entry.ID] = entry
	}
	return nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func (m *memStore) Search(ctx context.Context, vec []float32, topK int) ([]*model.RetrievalResult, error) {
	var results []*model.RetrievalResult
	for _, entry := range m.entries {
		results = append(results, &model.RetrievalResult{
			Text:         entry.Text,
			DocumentName: entry.DocumentName,
			Metadata:     entry.Metadata,
			Distance:     cosineDistance(vec, entry.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.entries)), nil
}

func (m *memStore) SourceCount(ctx context.Context) (int64, error) {
	names := map[string]struct{}{}
	for _, entry := range m.entries {
		names[entry.DocumentName] = struct{}{}
	}
	return int64(len(names)), nil
}

func (m *memStore) DeleteByDocument(ctx context.Context, documentName string) (int64, error) {
	var deleted int64
	for id, entry := range m.entries {
		if entry.DocumentName == documentName {
			delete(m.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.entries = map[string]*model.IndexEntry{}
	return nil
}

func newTestIndexService(t *testing.T, store ChunkStore, embedder *fakeEmbedder) *IndexService {
	t.Helper()
	ck, err := chunker.New(spaceTokenizer{}, 500, 50)
	require.NoError(t, err)
	return NewIndexService(store, embedder, ck, "compliance_docs", time.Second)
}

func TestChunkID(t *testing.T) {
	require.Equal(t, "policy.txt_0", ChunkID("policy.txt", 0))
	require.Equal(t, "policy.txt_12", ChunkID("policy.txt", 12))
}

func TestAddDocuments_IndexesChunks(t *testing.T) {
	store := newMemStore()
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	svc := newTestIndexService(t, store, embedder)

	err := svc.AddDocuments(context.Background(), []model.Document{
		{Name: "policy.txt", Text: "all staff must complete training"},
	})
	require.NoError(t, err)
	require.Len(t, store.entries, 1)

	entry := store.entries["policy.txt_0"]
	require.NotNil(t, entry)
	require.Equal(t, "policy.txt", entry.DocumentName)
	require.Equal(t, 0, entry.Ordinal)
	require.Equal(t, "all staff must complete training", entry.Text)
	require.Equal(t, "policy.txt", entry.Metadata["document_name"])
	require.Equal(t, "1", entry.Metadata["total_chunks"])
	require.NotEmpty(t, entry.Metadata["timestamp"])
}

func TestAddDocuments_EmbedErrorWritesNothing(t *testing.T) {
	store := newMemStore()
	embedder := &fakeEmbedder{err: fmt.Errorf("service down")}
	svc := newTestIndexService(t, store, embedder)

	err := svc.AddDocuments(context.Background(), []model.Document{
		{Name: "a.txt", Text: "text"},
	})
	require.ErrorIs(t, err, apperr.ErrEmbedding)
	require.Empty(t, store.entries)
}

func TestAddDocuments_ShortBatchWritesNothing(t *testing.T) {
	store := newMemStore()
	embedder := &fakeEmbedder{shortBy: 1}
	svc := newTestIndexService(t, store, embedder)

	err := svc.AddDocuments(context.Background(), []model.Document{
		{Name: "a.txt", Text: "first document"},
		{Name: "b.txt", Text: "second document"},
	})
	require.ErrorIs(t, err, apperr.ErrEmbedding)
	require.Empty(t, store.entries)
}

func TestAddDocuments_ReingestOverwritesInPlace(t *testing.T) {
	store := newMemStore()
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	svc := newTestIndexService(t, store, embedder)

	require.NoError(t, svc.AddDocuments(context.Background(), []model.Document{
		{Name: "policy.txt", Text: "old content"},
	}))
	require.NoError(t, svc.AddDocuments(context.Background(), []model.Document{
		{Name: "policy.txt", Text: "new content"},
	}))

	require.Len(t, store.entries, 1)
	require.Equal(t, "new content", store.entries["policy.txt_0"].Text)
}

func TestSearch_EmptyIndexReturnsNoResults(t *testing.T) {
	store := newMemStore()
	embedder := &fakeEmbedder{}
	svc := newTestIndexService(t, store, embedder)

	results, err := svc.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Empty(t, results)
	// No point embedding a query against an empty index.
	require.Zero(t, embedder.calls)
}

func TestSearch_RanksByDistance(t *testing.T) {
	store := newMemStore()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"password rules":          {1, 0, 0},
		"password policy details": {0.9, 0.1, 0},
		"travel reimbursement":    {0, 1, 0},
		"gift acceptance limits":  {0, 0, 1},
	}}
	svc := newTestIndexService(t, store, embedder)

	require.NoError(t, svc.AddDocuments(context.Background(), []model.Document{
		{Name: "information_security.txt", Text: "password policy details"},
		{Name: "expenses.txt", Text: "travel reimbursement"},
		{Name: "anti_corruption.txt", Text: "gift acceptance limits"},
	}))

	results, err := svc.Search(context.Background(), "password rules", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "information_security.txt", results[0].DocumentName)
	require.LessOrEqual(t, results[0].Distance, results[1].Distance)
}

func TestSearch_PerfectMatchHasZeroDistance(t *testing.T) {
	store := newMemStore()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"exact question": {0.5, 0.5, 0},
	}}
	svc := newTestIndexService(t, store, embedder)

	require.NoError(t, svc.AddDocuments(context.Background(), []model.Document{
		{Name: "doc.txt", Text: "exact question"},
	}))
	results, err := svc.Search(context.Background(), "exact question", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.InDelta(t, 0, results[0].Distance, 1e-9)
}

func TestStatsDeleteClear(t *testing.T) {
	store := newMemStore()
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	svc := newTestIndexService(t, store, embedder)

	require.NoError(t, svc.AddDocuments(context.Background(), []model.Document{
		{Name: "a.txt", Text: "first"},
		{Name: "b.txt", Text: "second"},
	}))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, "compliance_docs", stats.CollectionName)
	require.EqualValues(t, 2, stats.DocumentCount)
	require.EqualValues(t, 2, stats.SourceCount)

	deleted, err := svc.DeleteDocument(context.Background(), "a.txt")
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	require.NoError(t, svc.Clear(context.Background()))
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}
