package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-research/pkg/firecrawl"
)

// CrawlFetcher crawls a site through Firecrawl.
type CrawlFetcher struct {
	client   firecrawl.Client
	limit    int
	excludes []string
	poll     []firecrawl.PollOption
}

// NewCrawlFetcher creates a CrawlFetcher visiting at most limit pages.
func NewCrawlFetcher(c firecrawl.Client, limit int, excludes []string, poll ...firecrawl.PollOption) *CrawlFetcher {
	if limit <= 0 {
		limit = 20
	}
	if excludes == nil {
		excludes = firecrawl.DefaultExcludePaths
	}
	if len(poll) == 0 {
		poll = []firecrawl.PollOption{firecrawl.WithPollInterval(2 * time.Second), firecrawl.WithPollCap(10 * time.Second)}
	}
	return &CrawlFetcher{client: c, limit: limit, excludes: excludes, poll: poll}
}

// Name implements Fetcher.
func (f *CrawlFetcher) Name() string { return "firecrawl_crawl" }

// Fetch implements Fetcher.
func (f *CrawlFetcher) Fetch(ctx context.Context, url string) (*Content, error) {
	resp, err := f.client.Crawl(ctx, firecrawl.CrawlRequest{
		URL:           url,
		Limit:         f.limit,
		ExcludePaths:  f.excludes,
		ScrapeOptions: &firecrawl.ScrapeOptions{Formats: []string{"markdown"}, OnlyMainContent: true},
	})
	if err != nil {
		return nil, err
	}

	status, err := firecrawl.PollCrawl(ctx, f.client, resp.ID, f.poll...)
	if err != nil {
		return nil, err
	}

	out := &Content{}
	for _, d := range status.Data {
		if strings.TrimSpace(d.Markdown) == "" {
			continue
		}
		out.Pages = append(out.Pages, Page{URL: d.Metadata.SourceURL, Title: d.Metadata.Title, Markdown: d.Markdown})
	}
	if len(out.Pages) == 0 {
		return nil, eris.Errorf("fetch: crawl of %s returned no pages", url)
	}
	return out, nil
}

// ScrapeFetcher scrapes only the landing page through Firecrawl.
type ScrapeFetcher struct {
	client firecrawl.Client
}

// NewScrapeFetcher creates a ScrapeFetcher.
func NewScrapeFetcher(c firecrawl.Client) *ScrapeFetcher {
	return &ScrapeFetcher{client: c}
}

// Name implements Fetcher.
func (f *ScrapeFetcher) Name() string { return "firecrawl_scrape" }

// Fetch implements Fetcher.
func (f *ScrapeFetcher) Fetch(ctx context.Context, url string) (*Content, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{URL: url, Formats: []string{"markdown"}})
	if err != nil {
		return nil, err
	}
	src := resp.Data.Metadata.SourceURL
	if src == "" {
		src = url
	}
	return &Content{Pages: []Page{{URL: src, Title: resp.Data.Metadata.Title, Markdown: resp.Data.Markdown}}}, nil
}
