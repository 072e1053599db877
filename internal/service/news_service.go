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
	"github.com/xxxsen/compbot/internal/news"
)

const newsSystemPrompt = "You are a professional news summarizer. Provide factual, neutral summaries."

// Unlike the answerer, the digest is allowed some editorial freedom.
const newsTemperature = 0.7

// Notifier delivers a rendered markdown digest to the chat channel.
type Notifier interface {
	SendMarkdown(ctx context.Context, content, title string) error
}

// NewsService fetches headlines, summarizes them and pushes the digest to
// Lark. Used by the daily cron job, the manual trigger endpoint and the
// chat bot.
type NewsService struct {
	fetcher          *news.Fetcher
	generator        ai.IGenerator
	notifier         Notifier
	preferredSources []string
	timeout          time.Duration
}

func NewNewsService(fetcher *news.Fetcher, generator ai.IGenerator, notifier Notifier, preferredSources []string, timeout time.Duration) *NewsService {
	return &NewsService{
		fetcher:          fetcher,
		generator:        generator,
		notifier:         notifier,
		preferredSources: preferredSources,
		timeout:          timeout,
	}
}

// Run executes one digest cycle. Zero fetched headlines is an error; the
// digest never fabricates stories.
func (s *NewsService) Run(ctx context.Context, category string) (*model.NewsDigest, error) {
	logger := logutil.GetLogger(ctx)

	var headlines []model.Article
	if category != "" && s.fetcher.HasNewsDataKey() {
		articles, err := s.fetcher.FetchFromNewsData(ctx, category)
		if err != nil {
			logger.Warn("category fetch failed, falling back to combined", zap.Error(err))
		}
		headlines = articles
	}
	if len(headlines) == 0 {
		headlines = s.fetcher.FetchCombined(ctx, s.preferredSources)
	}
	if len(headlines) == 0 {
		return nil, fmt.Errorf("no headlines fetched")
	}

	summary := s.summarize(ctx, headlines)
	title := "Daily News Summary - " + time.Now().Format("2006-01-02")
	if err := s.notifier.SendMarkdown(ctx, summary, title); err != nil {
		return nil, fmt.Errorf("deliver digest: %w", err)
	}

	logger.Info("news digest delivered", zap.Int("headlines", len(headlines)))
	return &model.NewsDigest{
		Summary:        summary,
		HeadlinesCount: len(headlines),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *NewsService) summarize(ctx context.Context, headlines []model.Article) string {
	var lines []string
	for _, h := range headlines {
		lines = append(lines, fmt.Sprintf("- %s (%s)", h.Title, h.Source))
	}

	prompt := fmt.Sprintf(`Summarize the following news headlines into a concise daily news summary.

Headlines:
%s

Format the summary as markdown with:
- Title: # Daily News Summary - %s
- Top Headlines section with 5-10 bullet points
- Categorized sections (World News, Business/Tech, etc.) with a one-line takeaway per story
- Sources list with hyperlinks at the bottom

Keep it factual and neutral.`,
		strings.Join(lines, "\n"), time.Now().Format("2006-01-02"))

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	summary, err := s.generator.Generate(genCtx, &ai.GenerateRequest{
		Prompt:       prompt,
		SystemPrompt: newsSystemPrompt,
		Temperature:  newsTemperature,
	})
	if err != nil {
		logutil.GetLogger(ctx).Warn("summary generation failed, using headline list", zap.Error(err))
		return fallbackSummary(headlines)
	}
	return summary
}

// fallbackSummary is the digest without the model: the raw headline list
// plus source links.
func fallbackSummary(headlines []model.Article) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Daily News Summary - %s\n\n## Top Headlines\n\n", time.Now().Format("2006-01-02"))
	for _, h := range headlines {
		fmt.Fprintf(&sb, "- %s (%s)\n", h.Title, h.Source)
	}
	sb.WriteString("\n## Sources\n\n")
	for _, h := range headlines {
		fmt.Fprintf(&sb, "- [%s](%s) - %s\n", h.Title, h.URL, h.Source)
	}
	return sb.String()
}
