package model

// Document is a raw source document as handed to ingestion. Immutable once
// loaded; chunking never mutates the original text.
type Document struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Chunk is one bounded slice of a document's tokenized text, the unit of
// embedding and indexing. Ordinal is 0-based and dense per document.
type Chunk struct {
	DocumentName string `json:"document_name"`
	Ordinal      int    `json:"ordinal"`
	Text         string `json:"text"`
	TotalChunks  int    `json:"total_chunks"`
}

// IndexEntry is what the vector index persists per chunk. ID is
// "<document_name>_<ordinal>"; re-ingesting an identically named and
// identically chunked document overwrites in place (last write wins).
type IndexEntry struct {
	ID           string            `json:"id"`
	DocumentName string            `json:"document_name"`
	Ordinal      int               `json:"ordinal"`
	Text         string            `json:"text"`
	Embedding    []float32         `json:"embedding"`
	Metadata     map[string]string `json:"metadata"`
	Ctime        int64             `json:"ctime"`
}
