package firecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawl_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/crawl", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CrawlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://acme.de", req.URL)
		assert.Equal(t, 20, req.Limit)
		assert.Equal(t, DefaultExcludePaths, req.ExcludePaths)
		require.NotNil(t, req.ScrapeOptions)
		assert.Equal(t, []string{"markdown"}, req.ScrapeOptions.Formats)

		w.Write([]byte(`{"success":true,"id":"crawl-1"}`))
	}))
	defer srv.Close()

	c := NewClient("fc-key", WithBaseURL(srv.URL))
	resp, err := c.Crawl(context.Background(), CrawlRequest{
		URL:           "https://acme.de",
		Limit:         20,
		ExcludePaths:  DefaultExcludePaths,
		ScrapeOptions: &ScrapeOptions{Formats: []string{"markdown"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "crawl-1", resp.ID)
}

func TestCrawl_NotAccepted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Crawl(context.Background(), CrawlRequest{URL: "https://acme.de"})
	assert.Error(t, err)
}

func TestGetCrawlStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/crawl/abc", r.URL.Path)
		w.Write([]byte(`{"status":"completed","total":2,"completed":2,"data":[
			{"markdown":"# Home","metadata":{"title":"Home","sourceURL":"https://acme.de","statusCode":200}},
			{"markdown":"# About","metadata":{"sourceURL":"https://acme.de/about"}}
		]}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL+"/")).GetCrawlStatus(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "https://acme.de/about", resp.Data[1].Metadata.SourceURL)
}

func TestScrape_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"insufficient credits"}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Scrape(context.Background(), ScrapeRequest{URL: "https://acme.de"})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "insufficient credits")
}

func TestScrape_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"markdown"}, req.Formats)
		w.Write([]byte(`{"success":true,"data":{"markdown":"# Acme","metadata":{"sourceURL":"https://acme.de"}}}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL)).Scrape(context.Background(), ScrapeRequest{URL: "https://acme.de", Formats: []string{"markdown"}})
	require.NoError(t, err)
	assert.Equal(t, "# Acme", resp.Data.Markdown)
}
