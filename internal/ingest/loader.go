package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/xxxsen/compbot/internal/docstore"
	"github.com/xxxsen/compbot/internal/model"
)

// Loader reads the document corpus out of a docstore. Markdown files are
// flattened to plain text before chunking so formatting markers never leak
// into embeddings.
type Loader struct {
	store docstore.Store
}

func NewLoader(store docstore.Store) *Loader {
	return &Loader{store: store}
}

// Load reads every document in the store. A file that cannot be read is
// skipped with a warning; the rest of the corpus still loads.
func (l *Loader) Load(ctx context.Context) ([]model.Document, error) {
	logger := logutil.GetLogger(ctx)
	names, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]model.Document, 0, len(names))
	for _, name := range names {
		data, err := l.store.Read(ctx, name)
		if err != nil {
			logger.Warn("skip unreadable document", zap.String("name", name), zap.Error(err))
			continue
		}
		content := string(data)
		if strings.EqualFold(filepath.Ext(name), ".md") {
			content = FlattenMarkdown(content)
		}
		docs = append(docs, model.Document{Name: name, Text: content})
	}
	logger.Info("corpus loaded", zap.Int("documents", len(docs)))
	return docs, nil
}

// FlattenMarkdown walks the parsed document and keeps only the text
// segments, one block per line.
func FlattenMarkdown(markdown string) string {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if block, ok := node.(*ast.FencedCodeBlock); ok {
			var sb strings.Builder
			for i := 0; i < block.Lines().Len(); i++ {
				line := block.Lines().At(i)
				sb.Write(line.Value(reader.Source()))
			}
			if s := strings.TrimSpace(sb.String()); s != "" {
				blocks = append(blocks, s)
			}
			continue
		}
		if txt := extractText(node, reader.Source()); txt != "" {
			blocks = append(blocks, txt)
		}
	}
	return strings.Join(blocks, "\n")
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
