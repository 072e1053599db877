package model

// RetrievalResult is one nearest-neighbor hit. Distance is cosine distance:
// 0 means identical direction, smaller is more similar.
type RetrievalResult struct {
	Text         string            `json:"text"`
	DocumentName string            `json:"document_name"`
	Metadata     map[string]string `json:"metadata"`
	Distance     float64           `json:"distance"`
}

type CollectionStats struct {
	CollectionName string `json:"collection_name"`
	DocumentCount  int64  `json:"document_count"`
	SourceCount    int64  `json:"source_count"`
}
