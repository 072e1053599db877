package model

type Article struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type NewsDigest struct {
	Summary        string `json:"summary"`
	HeadlinesCount int    `json:"headlines_count"`
	Timestamp      string `json:"timestamp"`
}
