package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer is the subword codec the chunker slides its window over. The
// production implementation is tiktoken; tests inject deterministic stubs.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(tokens []int) (string, error)
}

type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken returns a Tokenizer backed by the named tiktoken encoding,
// e.g. "cl100k_base". The encoding is pinned per deployment: changing it
// changes chunk boundaries and requires re-indexing.
func NewTiktoken(encoding string) (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}
	return &tiktokenCodec{enc: enc}, nil
}

func (t *tiktokenCodec) Encode(text string) ([]int, error) {
	return t.enc.Encode(text, nil, nil), nil
}

func (t *tiktokenCodec) Decode(tokens []int) (string, error) {
	return t.enc.Decode(tokens), nil
}
