package model

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Answer is the only thing a caller of the answerer ever sees: fallback,
// grounded and failure outcomes all arrive as a well-formed Answer value.
type Answer struct {
	Answer         string     `json:"answer"`
	Sources        []string   `json:"sources"`
	Confidence     Confidence `json:"confidence"`
	Disclaimer     string     `json:"disclaimer"`
	RetrievedCount int        `json:"retrieved_count"`
	Error          string     `json:"error,omitempty"`
}
