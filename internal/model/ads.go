package model

import "time"

// ImpressionRange is the impression bucket reported by the ads archive.
type ImpressionRange struct {
	Lower int64 `json:"lower_bound"`
	Upper int64 `json:"upper_bound"`
}

// Midpoint returns the centre of the range. An open-ended bucket, reported
// with only a lower bound, counts as its lower bound.
func (r ImpressionRange) Midpoint() float64 {
	upper := r.Upper
	if upper < r.Lower {
		upper = r.Lower
	}
	return float64(r.Lower+upper) / 2
}

// AdCandidate is one record returned by an ad search.
type AdCandidate struct {
	ID             string          `json:"id"`
	PageID         string          `json:"page_id,omitempty"`
	PageName       string          `json:"page_name"`
	CreativeBodies []string        `json:"creative_bodies,omitempty"`
	LinkTitles     []string        `json:"link_titles,omitempty"`
	Platforms      []string        `json:"platforms,omitempty"`
	DeliveryStart  time.Time       `json:"delivery_start"`
	DeliveryStop   *time.Time      `json:"delivery_stop,omitempty"`
	Impressions    ImpressionRange `json:"impressions"`
	SnapshotURL    string          `json:"snapshot_url,omitempty"`
	SearchTerm     string          `json:"search_term,omitempty"`
}

// Active reports whether the ad has no stop date.
func (a AdCandidate) Active() bool {
	return a.DeliveryStop == nil
}

// IdentityProfile describes how to recognise a target's own ads.
type IdentityProfile struct {
	Domain   string   `json:"domain"`
	BaseName string   `json:"base_name"`
	Variants []string `json:"variants"`
	Denylist []string `json:"denylist,omitempty"`
}

// RelevanceVerdict is the scorer's decision for one candidate.
type RelevanceVerdict struct {
	Score    int      `json:"score"`
	Included bool     `json:"included"`
	Reasons  []string `json:"reasons,omitempty"`
}

// ScoredAd pairs a candidate with its verdict.
type ScoredAd struct {
	AdCandidate
	Relevance RelevanceVerdict `json:"relevance"`
}

// AdStatus is the outcome of the ad intelligence stage.
type AdStatus string

const (
	AdStatusNoToken      AdStatus = "NO_TOKEN"
	AdStatusSearchFailed AdStatus = "SEARCH_FAILED"
	AdStatusNoRelevant   AdStatus = "NO_RELEVANT_RESULTS"
	AdStatusRelevant     AdStatus = "RELEVANT_RESULTS_FOUND"
)

// SearchFailure names why ad search failed.
type SearchFailure string

const (
	SearchRateLimited SearchFailure = "RATE_LIMITED"
	SearchAuthFailed  SearchFailure = "AUTH_FAILED"
	SearchUnavailable SearchFailure = "UNAVAILABLE"
	SearchTimeout     SearchFailure = "SEARCH_TIMEOUT"
	SearchInternal    SearchFailure = "INTERNAL"
)

// AdMetrics summarises the relevant ads.
type AdMetrics struct {
	Total             int            `json:"total_ads"`
	Active            int            `json:"active_ads"`
	Platforms         map[string]int `json:"platforms"`
	LatestActivity    *time.Time     `json:"latest_activity,omitempty"`
	EstimatedSpend    float64        `json:"estimated_spend"`
	Currency          string         `json:"currency"`
	Sophistication    string         `json:"sophistication"`
	AdvertisingStatus string         `json:"advertising_status"`
	SampleCreatives   []string       `json:"sample_creatives,omitempty"`
}

// AdClassification is the full result of the ad intelligence stage.
type AdClassification struct {
	Status         AdStatus      `json:"status"`
	Failure        SearchFailure `json:"failure,omitempty"`
	Ads            []ScoredAd    `json:"ads,omitempty"`
	Metrics        AdMetrics     `json:"metrics"`
	SearchTerms    []string      `json:"search_terms,omitempty"`
	Message        string        `json:"message"`
	Recommendation string        `json:"recommendation,omitempty"`
	ClassifiedAt   time.Time     `json:"classified_at"`
}
