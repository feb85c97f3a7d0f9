package fetch

import (
	"context"

	"github.com/sells-group/outreach-research/pkg/jina"
)

// ReaderFetcher reads the landing page through Jina Reader.
type ReaderFetcher struct {
	client jina.Client
}

// NewReaderFetcher creates a ReaderFetcher.
func NewReaderFetcher(c jina.Client) *ReaderFetcher {
	return &ReaderFetcher{client: c}
}

// Name implements Fetcher.
func (f *ReaderFetcher) Name() string { return "jina" }

// Fetch implements Fetcher.
func (f *ReaderFetcher) Fetch(ctx context.Context, url string) (*Content, error) {
	resp, err := f.client.Read(ctx, url)
	if err != nil {
		return nil, err
	}
	src := resp.Data.URL
	if src == "" {
		src = url
	}
	return &Content{Pages: []Page{{URL: src, Title: resp.Data.Title, Markdown: resp.Data.Content}}}, nil
}
