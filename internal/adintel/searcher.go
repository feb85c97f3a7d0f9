package adintel

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-research/internal/model"
	"github.com/sells-group/outreach-research/pkg/metaads"
)

// ErrSearchTimeout is returned when a search, including any rate-limit wait
// and retries, does not finish within its deadline.
var ErrSearchTimeout = eris.New("adintel: search timed out")

// SearchRequest is one variant search.
type SearchRequest struct {
	Term      string
	Countries []string
	Limit     int
}

// Searcher runs a single ad search.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]model.AdCandidate, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, req SearchRequest) ([]model.AdCandidate, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, req SearchRequest) ([]model.AdCandidate, error) {
	return f(ctx, req)
}

// MetaSearcher searches the Meta ad library.
type MetaSearcher struct {
	client metaads.Client
}

// NewMetaSearcher wraps a metaads client.
func NewMetaSearcher(c metaads.Client) *MetaSearcher {
	return &MetaSearcher{client: c}
}

// Search implements Searcher.
func (m *MetaSearcher) Search(ctx context.Context, req SearchRequest) ([]model.AdCandidate, error) {
	resp, err := m.client.Search(ctx, metaads.Query{
		Terms:     req.Term,
		Countries: req.Countries,
		Status:    "ALL",
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.AdCandidate, 0, len(resp.Data))
	for _, ad := range resp.Data {
		out = append(out, toCandidate(ad, req.Term))
	}
	return out, nil
}

func toCandidate(ad metaads.Ad, term string) model.AdCandidate {
	c := model.AdCandidate{
		ID:             ad.ID,
		PageID:         ad.PageID,
		PageName:       strings.TrimSpace(ad.PageName),
		CreativeBodies: ad.CreativeBodies,
		LinkTitles:     ad.CreativeLinkTitles,
		Platforms:      ad.PublisherPlatforms,
		Impressions: model.ImpressionRange{
			Lower: int64(ad.Impressions.LowerBound),
			Upper: int64(ad.Impressions.UpperBound),
		},
		SnapshotURL: ad.SnapshotURL,
		SearchTerm:  term,
	}

	if t, err := metaads.ParseTime(ad.DeliveryStartTime); err == nil {
		c.DeliveryStart = t
	} else {
		zap.L().Debug("adintel: unparsed start time", zap.String("ad_id", ad.ID), zap.Error(err))
	}
	if ad.DeliveryStopTime != "" {
		if t, err := metaads.ParseTime(ad.DeliveryStopTime); err == nil {
			c.DeliveryStop = &t
		}
	}
	return c
}
