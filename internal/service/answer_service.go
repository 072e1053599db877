package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/compbot/internal/ai"
	"github.com/xxxsen/compbot/internal/model"
)

// Disclaimer is attached to every Answer, including fallback and failure
// outcomes.
const Disclaimer = "Internal guidance only. Not legal advice."

const (
	fallbackAnswer = "I couldn't find relevant compliance documents to answer your question. Please ensure the knowledge base has been populated with relevant documents."
	failureAnswer  = "I encountered an error processing your question. Please try again."

	answerSystemPrompt = "You are a compliance expert assistant. Provide accurate, factual answers based on the provided documents."
	contextDelimiter   = "\n\n---\n\n"

	// Low temperature keeps the model on the retrieved context instead of
	// improvising.
	answerTemperature = 0.3
)

// Retriever is the search half of the vector index, as the answerer sees it.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]*model.RetrievalResult, error)
}

// AnswerService turns a question into a grounded Answer. It is the single
// boundary where pipeline errors stop: callers always get a well-formed
// Answer value, never an error.
type AnswerService struct {
	retriever Retriever
	generator ai.IGenerator
	topK      int
	timeout   time.Duration
}

func NewAnswerService(retriever Retriever, generator ai.IGenerator, topK int, timeout time.Duration) *AnswerService {
	if topK <= 0 {
		topK = 5
	}
	return &AnswerService{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		timeout:   timeout,
	}
}

func (s *AnswerService) Answer(ctx context.Context, question string) *model.Answer {
	logger := logutil.GetLogger(ctx).With(zap.String("question", truncate(question, 50)))

	results, err := s.retriever.Search(ctx, question, s.topK)
	if err != nil {
		logger.Error("retrieval failed", zap.Error(err))
		return failure(err)
	}
	if len(results) == 0 {
		logger.Warn("no relevant documents found")
		return &model.Answer{
			Answer:     fallbackAnswer,
			Sources:    []string{},
			Confidence: model.ConfidenceNone,
			Disclaimer: Disclaimer,
		}
	}

	var contextParts []string
	var sources []string
	seen := map[string]struct{}{}
	for _, doc := range results {
		contextParts = append(contextParts, fmt.Sprintf("Document: %s\n%s", doc.DocumentName, doc.Text))
		if _, ok := seen[doc.DocumentName]; !ok {
			seen[doc.DocumentName] = struct{}{}
			sources = append(sources, doc.DocumentName)
		}
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	answer, err := s.generator.Generate(genCtx, &ai.GenerateRequest{
		Prompt:       buildAnswerPrompt(strings.Join(contextParts, contextDelimiter), question),
		SystemPrompt: answerSystemPrompt,
		Temperature:  answerTemperature,
	})
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		return failure(err)
	}

	confidence := ConfidenceFromDistances(distancesOf(results))
	logger.Info("generated answer",
		zap.Int("retrieved", len(results)),
		zap.Int("sources", len(sources)),
		zap.String("confidence", string(confidence)))
	return &model.Answer{
		Answer:         answer,
		Sources:        sources,
		Confidence:     confidence,
		Disclaimer:     Disclaimer,
		RetrievedCount: len(results),
	}
}

func buildAnswerPrompt(contextBlock, question string) string {
	return fmt.Sprintf(`Based on the following compliance documents, answer the question accurately and concisely.

Documents:
%s

Question: %s

Provide a clear, factual answer based only on the provided documents. If the documents don't contain enough information, say so.`, contextBlock, question)
}

// ConfidenceFromDistances maps the mean cosine distance of the retrieved
// set onto the three confidence buckets. The thresholds are a heuristic
// policy, not a calibrated probability; they are strict on the high side
// (0.3 is medium, 0.6 is low). An empty set means nothing was retrieved.
func ConfidenceFromDistances(distances []float64) model.Confidence {
	if len(distances) == 0 {
		return model.ConfidenceNone
	}
	var sum float64
	for _, d := range distances {
		sum += d
	}
	avg := sum / float64(len(distances))
	switch {
	case avg < 0.3:
		return model.ConfidenceHigh
	case avg < 0.6:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func distancesOf(results []*model.RetrievalResult) []float64 {
	distances := make([]float64, 0, len(results))
	for _, r := range results {
		distances = append(distances, r.Distance)
	}
	return distances
}

func failure(err error) *model.Answer {
	return &model.Answer{
		Answer:     failureAnswer,
		Sources:    []string{},
		Confidence: model.ConfidenceNone,
		Disclaimer: Disclaimer,
		Error:      err.Error(),
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
