package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/compbot/internal/model"
)

const (
	defaultNewsAPIBaseURL  = "https://newsapi.org"
	defaultNewsDataBaseURL = "https://newsdata.io"

	maxHeadlines = 10
)

// Fetcher pulls top headlines from NewsAPI.org and NewsData.io. Either key
// may be empty; a source without a key is skipped.
type Fetcher struct {
	client          *http.Client
	newsAPIKey      string
	newsDataKey     string
	country         string
	newsAPIBaseURL  string
	newsDataBaseURL string
}

type Option func(*Fetcher)

// WithBaseURLs overrides the vendor endpoints, used by tests.
func WithBaseURLs(newsAPI, newsData string) Option {
	return func(f *Fetcher) {
		if newsAPI != "" {
			f.newsAPIBaseURL = strings.TrimRight(newsAPI, "/")
		}
		if newsData != "" {
			f.newsDataBaseURL = strings.TrimRight(newsData, "/")
		}
	}
}

func NewFetcher(client *http.Client, newsAPIKey, newsDataKey, country string, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:          client,
		newsAPIKey:      newsAPIKey,
		newsDataKey:     newsDataKey,
		country:         country,
		newsAPIBaseURL:  defaultNewsAPIBaseURL,
		newsDataBaseURL: defaultNewsDataBaseURL,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) HasNewsDataKey() bool {
	return f.newsDataKey != ""
}

type newsAPIResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// FetchFromNewsAPI queries NewsAPI.org top headlines, preferring explicit
// sources and falling back to the configured country.
func (f *Fetcher) FetchFromNewsAPI(ctx context.Context, sources []string) ([]model.Article, error) {
	if f.newsAPIKey == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("apiKey", f.newsAPIKey)
	params.Set("pageSize", "10")
	if len(sources) > 0 {
		params.Set("sources", strings.Join(sources, ","))
	} else {
		params.Set("country", f.country)
	}
	var out newsAPIResponse
	if err := f.getJSON(ctx, f.newsAPIBaseURL+"/v2/top-headlines?"+params.Encode(), &out); err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	var articles []model.Article
	for _, item := range out.Articles {
		if item.Title == "" || item.URL == "" {
			continue
		}
		source := item.Source.Name
		if source == "" {
			source = "Unknown"
		}
		articles = append(articles, model.Article{
			Title:       item.Title,
			Source:      source,
			URL:         item.URL,
			Description: item.Description,
		})
	}
	return articles, nil
}

type newsDataResponse struct {
	Results []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
		SourceName  string `json:"source_name"`
	} `json:"results"`
}

// FetchFromNewsData queries NewsData.io, which supports category filters.
func (f *Fetcher) FetchFromNewsData(ctx context.Context, category string) ([]model.Article, error) {
	if f.newsDataKey == "" {
		return nil, nil
	}
	if category == "" {
		category = "top"
	}
	params := url.Values{}
	params.Set("apikey", f.newsDataKey)
	params.Set("category", category)
	params.Set("country", f.country)
	params.Set("language", "en")
	var out newsDataResponse
	if err := f.getJSON(ctx, f.newsDataBaseURL+"/api/1/news?"+params.Encode(), &out); err != nil {
		return nil, fmt.Errorf("newsdata: %w", err)
	}
	var articles []model.Article
	for _, item := range out.Results {
		if item.Title == "" || item.Link == "" {
			continue
		}
		source := item.SourceName
		if source == "" {
			source = "Unknown"
		}
		articles = append(articles, model.Article{
			Title:       item.Title,
			Source:      source,
			URL:         item.Link,
			Description: item.Description,
		})
	}
	return articles, nil
}

// FetchCombined merges both vendors, dedupes by lowercase title and caps
// the result at ten articles.
func (f *Fetcher) FetchCombined(ctx context.Context, preferredSources []string) []model.Article {
	logger := logutil.GetLogger(ctx)
	var all []model.Article

	articles, err := f.FetchFromNewsAPI(ctx, preferredSources)
	if err != nil {
		logger.Warn("newsapi fetch failed", zap.Error(err))
	}
	all = append(all, articles...)

	if len(all) < 5 {
		articles, err := f.FetchFromNewsData(ctx, "")
		if err != nil {
			logger.Warn("newsdata fetch failed", zap.Error(err))
		}
		all = append(all, articles...)
	}

	seen := map[string]struct{}{}
	var unique []model.Article
	for _, article := range all {
		key := strings.ToLower(article.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, article)
	}
	if len(unique) > maxHeadlines {
		unique = unique[:maxHeadlines]
	}
	logger.Info("combined headlines", zap.Int("count", len(unique)))
	return unique
}

func (f *Fetcher) getJSON(ctx context.Context, endpoint string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
