package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/compbot/internal/config"
	"github.com/xxxsen/compbot/internal/docstore"
)

func newLocalStore(t *testing.T, dir string) docstore.Store {
	t.Helper()
	store, err := docstore.New(config.DocStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": dir},
	})
	require.NoError(t, err)
	return store
}

func TestLoad_ReadsCorpus(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_policy.txt"), []byte("plain policy text"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_guide.md"), []byte("# Guide\n\nSome **bold** rule.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.pdf"), []byte("binary"), 0o644))

	loader := NewLoader(newLocalStore(t, dir))
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Listing is sorted, so the markdown guide comes first.
	require.Equal(t, "a_guide.md", docs[0].Name)
	require.Contains(t, docs[0].Text, "Guide")
	require.Contains(t, docs[0].Text, "bold")
	require.NotContains(t, docs[0].Text, "#")
	require.NotContains(t, docs[0].Text, "**")

	require.Equal(t, "b_policy.txt", docs[1].Name)
	require.Equal(t, "plain policy text", docs[1].Text)
}

func TestLoad_EmptyDirIsNotAnError(t *testing.T) {
	loader := NewLoader(newLocalStore(t, t.TempDir()))
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestFlattenMarkdown(t *testing.T) {
	flat := FlattenMarkdown("# Security\n\nUse strong passwords.\n\n- rotate quarterly\n- never share\n\n```\nexample snippet\n```\n")
	require.Contains(t, flat, "Security")
	require.Contains(t, flat, "Use strong passwords.")
	require.Contains(t, flat, "rotate quarterly")
	require.Contains(t, flat, "example snippet")
	require.NotContains(t, flat, "#")
	require.NotContains(t, flat, "```")
}

func TestLocalStore_SaveAndRead(t *testing.T) {
	store := newLocalStore(t, filepath.Join(t.TempDir(), "docs"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "new_policy.txt", []byte("content")))
	data, err := store.Read(ctx, "new_policy.txt")
	require.NoError(t, err)
	require.Equal(t, "content", string(data))

	require.Error(t, store.Save(ctx, "../escape.txt", []byte("x")))
	_, err = store.Read(ctx, "nested/name.txt")
	require.Error(t, err)
}
