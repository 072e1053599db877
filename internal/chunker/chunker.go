package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/compbot/internal/model"
	apperr "github.com/xxxsen/compbot/internal/pkg/errors"
)

// Chunker splits document text into overlapping token windows. Window size
// and overlap are measured in tokens, not characters.
type Chunker struct {
	tok       Tokenizer
	chunkSize int
	overlap   int
}

func New(tok Tokenizer, chunkSize, overlap int) (*Chunker, error) {
	if tok == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	// overlap >= chunkSize would stall the window; reject at construction
	// instead of looping forever later.
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &Chunker{tok: tok, chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits text into chunk strings. Text that fits inside one window is
// returned verbatim, with no tokenize/detokenize round trip.
func (c *Chunker) Chunk(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	tokens, err := c.tok.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", apperr.ErrSegmentation, err)
	}
	if len(tokens) <= c.chunkSize {
		return []string{text}, nil
	}

	step := c.chunkSize - c.overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		piece, err := c.tok.Decode(tokens[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: decode window at %d: %v", apperr.ErrSegmentation, start, err)
		}
		chunks = append(chunks, piece)
	}
	return chunks, nil
}

// ChunkDocuments maps documents to a flat ordered chunk list. A document
// that fails to tokenize is skipped with a warning; its siblings still get
// chunked.
func (c *Chunker) ChunkDocuments(ctx context.Context, docs []model.Document) []model.Chunk {
	logger := logutil.GetLogger(ctx)
	var all []model.Chunk
	for _, doc := range docs {
		pieces, err := c.Chunk(doc.Text)
		if err != nil {
			logger.Warn("skipping document, chunking failed",
				zap.String("document", doc.Name), zap.Error(err))
			continue
		}
		for i, text := range pieces {
			all = append(all, model.Chunk{
				DocumentName: doc.Name,
				Ordinal:      i,
				Text:         text,
				TotalChunks:  len(pieces),
			})
		}
	}
	logger.Info("chunked documents",
		zap.Int("documents", len(docs)), zap.Int("chunks", len(all)))
	return all
}
