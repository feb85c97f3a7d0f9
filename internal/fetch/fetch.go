// Package fetch retrieves a target website's text for extraction.
package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrFetchFailed wraps every error a Chain returns.
var ErrFetchFailed = eris.New("fetch: failed")

// Page is one retrieved page.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

// Content is the combined text of a target's pages.
type Content struct {
	Locator string `json:"locator"`
	Source  string `json:"source"`
	Pages   []Page `json:"pages"`
}

// Text renders pages as labelled blocks separated by a rule.
func (c *Content) Text() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Pages {
		fmt.Fprintf(&b, "Page URL: %s\nContent: %s\n%s\n", p.URL, p.Markdown, strings.Repeat("=", 80))
	}
	return b.String()
}

// Fetcher retrieves content for a locator.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, locator string) (*Content, error)
}

// Chain tries fetchers in order and returns the first non-empty result.
type Chain struct {
	fetchers []Fetcher
	maxChars int
}

// NewChain creates a Chain. maxChars caps each page's markdown; zero keeps
// everything.
func NewChain(maxChars int, fetchers ...Fetcher) *Chain {
	return &Chain{fetchers: fetchers, maxChars: maxChars}
}

// Name implements Fetcher.
func (c *Chain) Name() string { return "chain" }

// Fetch implements Fetcher.
func (c *Chain) Fetch(ctx context.Context, locator string) (*Content, error) {
	url := Normalize(locator)

	var lastErr error
	for _, f := range c.fetchers {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "fetch: cancelled")
		}
		content, err := f.Fetch(ctx, url)
		if err != nil {
			zap.L().Debug("fetch: fetcher failed, trying next",
				zap.String("fetcher", f.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if content == nil || !hasText(content) {
			lastErr = eris.Errorf("fetch: %s returned no content for %s", f.Name(), url)
			continue
		}
		content.Locator = locator
		content.Source = f.Name()
		c.truncate(content)
		return content, nil
	}

	if lastErr == nil {
		lastErr = eris.New("no fetchers configured")
	}
	return nil, eris.Wrapf(ErrFetchFailed, "%s: %v", url, lastErr)
}

func (c *Chain) truncate(content *Content) {
	if c.maxChars <= 0 {
		return
	}
	for i := range content.Pages {
		if md := content.Pages[i].Markdown; len(md) > c.maxChars {
			cut := c.maxChars
			for cut > 0 && !isRuneStart(md[cut]) {
				cut--
			}
			content.Pages[i].Markdown = md[:cut]
		}
	}
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func hasText(c *Content) bool {
	for _, p := range c.Pages {
		if strings.TrimSpace(p.Markdown) != "" {
			return true
		}
	}
	return false
}

// Normalize ensures the locator carries a scheme.
func Normalize(locator string) string {
	s := strings.TrimSpace(locator)
	if s != "" && !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return s
}
