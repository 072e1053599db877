package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/compbot/internal/ai"
	"github.com/xxxsen/compbot/internal/model"
)

type fakeRetriever struct {
	results []*model.RetrievalResult
	err     error
}

func (f *fakeRetriever) Search(ctx context.Context, query string, topK int) ([]*model.RetrievalResult, error) {
	return f.results, f.err
}

type fakeGenerator struct {
	reply   string
	err     error
	lastReq *ai.GenerateRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req *ai.GenerateRequest) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestAnswerService(retriever Retriever, generator ai.IGenerator) *AnswerService {
	return NewAnswerService(retriever, generator, 5, time.Second)
}

func result(doc, text string, distance float64) *model.RetrievalResult {
	return &model.RetrievalResult{DocumentName: doc, Text: text, Distance: distance}
}

func TestAnswer_NoResultsFallsBack(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be used"}
	svc := newTestAnswerService(&fakeRetriever{}, gen)

	answer := svc.Answer(context.Background(), "what is the gift limit?")
	require.Equal(t, fallbackAnswer, answer.Answer)
	require.Equal(t, model.ConfidenceNone, answer.Confidence)
	require.NotNil(t, answer.Sources)
	require.Empty(t, answer.Sources)
	require.Equal(t, Disclaimer, answer.Disclaimer)
	require.Empty(t, answer.Error)
	require.Zero(t, answer.RetrievedCount)
	// The generator never runs without context.
	require.Nil(t, gen.lastReq)
}

func TestAnswer_RetrievalErrorYieldsErrorState(t *testing.T) {
	svc := newTestAnswerService(&fakeRetriever{err: fmt.Errorf("index down")}, &fakeGenerator{})

	answer := svc.Answer(context.Background(), "question")
	require.Equal(t, failureAnswer, answer.Answer)
	require.Equal(t, model.ConfidenceNone, answer.Confidence)
	require.NotEmpty(t, answer.Error)
	require.Equal(t, Disclaimer, answer.Disclaimer)
}

func TestAnswer_GenerationErrorYieldsErrorState(t *testing.T) {
	retriever := &fakeRetriever{results: []*model.RetrievalResult{
		result("a.txt", "text", 0.1),
	}}
	svc := newTestAnswerService(retriever, &fakeGenerator{err: fmt.Errorf("model timeout")})

	answer := svc.Answer(context.Background(), "question")
	require.Equal(t, failureAnswer, answer.Answer)
	require.NotEmpty(t, answer.Error)
	require.Equal(t, Disclaimer, answer.Disclaimer)
}

func TestAnswer_HappyPath(t *testing.T) {
	retriever := &fakeRetriever{results: []*model.RetrievalResult{
		result("information_security.txt", "passwords need 12 characters", 0.15),
		result("code_of_conduct.txt", "treat colleagues with respect", 0.2),
		result("information_security.txt", "rotate credentials quarterly", 0.25),
	}}
	gen := &fakeGenerator{reply: "Passwords must be at least 12 characters."}
	svc := newTestAnswerService(retriever, gen)

	answer := svc.Answer(context.Background(), "what are the password requirements?")
	require.Equal(t, "Passwords must be at least 12 characters.", answer.Answer)
	// Sources are unique, in first-retrieved order.
	require.Equal(t, []string{"information_security.txt", "code_of_conduct.txt"}, answer.Sources)
	require.Equal(t, model.ConfidenceHigh, answer.Confidence)
	require.Equal(t, 3, answer.RetrievedCount)
	require.Equal(t, Disclaimer, answer.Disclaimer)
	require.Empty(t, answer.Error)

	require.NotNil(t, gen.lastReq)
	require.Equal(t, answerSystemPrompt, gen.lastReq.SystemPrompt)
	require.InDelta(t, 0.3, gen.lastReq.Temperature, 1e-6)
	require.Contains(t, gen.lastReq.Prompt, "Document: information_security.txt\npasswords need 12 characters")
	require.Contains(t, gen.lastReq.Prompt, contextDelimiter)
	require.Contains(t, gen.lastReq.Prompt, "Question: what are the password requirements?")
}

// TestAnswer_OverIndexedPolicyCorpus runs the full pipeline: the policy
// corpus is chunked and indexed, then a question is answered through the
// index rather than a canned retriever.
func TestAnswer_OverIndexedPolicyCorpus(t *testing.T) {
	store := newMemStore()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"what are the password requirements?":                                  {1, 0, 0},
		"passwords need minimum 12 characters, mixed case, numbers, symbols":   {0.9, 0.1, 0},
		"personal data is retained for seven years then destroyed":             {0.7, 0.3, 0},
		"quarterly reports are filed with the securities regulator":            {0.5, 0.5, 0},
		"employees must disclose conflicts of interest":                        {0.3, 0.7, 0},
		"gifts above the approval threshold must be declined or surrendered":   {0.1, 0.9, 0},
	}}
	index := newTestIndexService(t, store, embedder)
	require.NoError(t, index.AddDocuments(context.Background(), []model.Document{
		{Name: "information_security.txt", Text: "passwords need minimum 12 characters, mixed case, numbers, symbols"},
		{Name: "data_privacy_policy.txt", Text: "personal data is retained for seven years then destroyed"},
		{Name: "financial_regulations.txt", Text: "quarterly reports are filed with the securities regulator"},
		{Name: "code_of_conduct.txt", Text: "employees must disclose conflicts of interest"},
		{Name: "anti_corruption.txt", Text: "gifts above the approval threshold must be declined or surrendered"},
	}))

	gen := &fakeGenerator{reply: "Passwords require at least 12 characters with mixed case, numbers and symbols."}
	svc := NewAnswerService(index, gen, 5, time.Second)

	answer := svc.Answer(context.Background(), "what are the password requirements?")
	require.Equal(t, 5, answer.RetrievedCount)
	require.Len(t, answer.Sources, 5)
	require.Equal(t, "information_security.txt", answer.Sources[0])
	require.Equal(t, model.ConfidenceMedium, answer.Confidence)
	require.Equal(t, Disclaimer, answer.Disclaimer)
	require.Empty(t, answer.Error)

	require.NotNil(t, gen.lastReq)
	require.Contains(t, gen.lastReq.Prompt, "Document: information_security.txt\npasswords need minimum 12 characters")
}

func TestConfidenceFromDistances(t *testing.T) {
	tests := []struct {
		name      string
		distances []float64
		want      model.Confidence
	}{
		{"empty", nil, model.ConfidenceNone},
		{"very close", []float64{0.1, 0.2}, model.ConfidenceHigh},
		{"just under high cutoff", []float64{0.29}, model.ConfidenceHigh},
		{"exactly high cutoff", []float64{0.3}, model.ConfidenceMedium},
		{"middling", []float64{0.4, 0.5}, model.ConfidenceMedium},
		{"exactly medium cutoff", []float64{0.6}, model.ConfidenceLow},
		{"far", []float64{0.9, 1.1}, model.ConfidenceLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ConfidenceFromDistances(tc.distances))
		})
	}
}
