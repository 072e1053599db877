package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newsAPIServer(t *testing.T, articles []map[string]interface{}, capture *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/top-headlines", r.URL.Path)
		if capture != nil {
			params := map[string]string{}
			for key := range r.URL.Query() {
				params[key] = r.URL.Query().Get(key)
			}
			*capture = params
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"articles": articles})
	}))
}

func newsDataServer(t *testing.T, results []map[string]interface{}, capture *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/1/news", r.URL.Path)
		if capture != nil {
			params := map[string]string{}
			for key := range r.URL.Query() {
				params[key] = r.URL.Query().Get(key)
			}
			*capture = params
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
	}))
}

func newsAPIArticle(title, source string) map[string]interface{} {
	return map[string]interface{}{
		"title":  title,
		"url":    "https://example.com/" + title,
		"source": map[string]string{"name": source},
	}
}

func newsDataArticle(title, source string) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"link":        "https://example.com/" + title,
		"source_name": source,
	}
}

func TestFetchFromNewsAPI_PrefersSources(t *testing.T) {
	var params map[string]string
	srv := newsAPIServer(t, []map[string]interface{}{
		newsAPIArticle("story one", "Reuters"),
		{"title": "", "url": "https://example.com/skipped"},
	}, &params)
	defer srv.Close()

	f := NewFetcher(srv.Client(), "key", "", "hk", WithBaseURLs(srv.URL, ""))
	articles, err := f.FetchFromNewsAPI(context.Background(), []string{"reuters", "bbc-news"})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	require.Equal(t, "story one", articles[0].Title)
	require.Equal(t, "Reuters", articles[0].Source)
	require.Equal(t, "reuters,bbc-news", params["sources"])
	require.Empty(t, params["country"])
}

func TestFetchFromNewsAPI_FallsBackToCountry(t *testing.T) {
	var params map[string]string
	srv := newsAPIServer(t, nil, &params)
	defer srv.Close()

	f := NewFetcher(srv.Client(), "key", "", "hk", WithBaseURLs(srv.URL, ""))
	_, err := f.FetchFromNewsAPI(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "hk", params["country"])
	require.Equal(t, "10", params["pageSize"])
}

func TestFetchFromNewsAPI_NoKeySkips(t *testing.T) {
	f := NewFetcher(nil, "", "", "hk")
	articles, err := f.FetchFromNewsAPI(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, articles)
}

func TestFetchFromNewsData_CategoryDefaultsToTop(t *testing.T) {
	var params map[string]string
	srv := newsDataServer(t, []map[string]interface{}{
		newsDataArticle("data story", "SCMP"),
	}, &params)
	defer srv.Close()

	f := NewFetcher(srv.Client(), "", "key", "hk", WithBaseURLs("", srv.URL))
	articles, err := f.FetchFromNewsData(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	require.Equal(t, "top", params["category"])
	require.Equal(t, "en", params["language"])

	_, err = f.FetchFromNewsData(context.Background(), "business")
	require.NoError(t, err)
	require.Equal(t, "business", params["category"])
}

func TestFetchCombined_DedupesAndCaps(t *testing.T) {
	var apiArticles []map[string]interface{}
	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		apiArticles = append(apiArticles, newsAPIArticle(title, "Reuters"))
	}
	apiSrv := newsAPIServer(t, apiArticles, nil)
	defer apiSrv.Close()

	dataArticles := []map[string]interface{}{
		newsDataArticle("ALPHA", "SCMP"), // dup of Alpha, case-insensitive
	}
	for _, title := range []string{"D1", "D2", "D3", "D4", "D5", "D6", "D7", "D8", "D9"} {
		dataArticles = append(dataArticles, newsDataArticle(title, "SCMP"))
	}
	dataSrv := newsDataServer(t, dataArticles, nil)
	defer dataSrv.Close()

	f := NewFetcher(apiSrv.Client(), "k1", "k2", "hk", WithBaseURLs(apiSrv.URL, dataSrv.URL))
	articles := f.FetchCombined(context.Background(), nil)
	require.Len(t, articles, 10)
	titles := map[string]int{}
	for _, article := range articles {
		titles[article.Title]++
	}
	require.Equal(t, 1, titles["Alpha"])
	require.Zero(t, titles["ALPHA"])
}

func TestFetchCombined_VendorFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), "k1", "", "hk", WithBaseURLs(srv.URL, srv.URL))
	articles := f.FetchCombined(context.Background(), nil)
	require.Empty(t, articles)
}
