// Package metaads provides a client for the Meta Ad Library (ads_archive)
// Graph API endpoint.
package metaads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultFields is the field list requested for every ad.
var DefaultFields = []string{
	"id",
	"page_name",
	"page_id",
	"ad_delivery_start_time",
	"ad_delivery_stop_time",
	"publisher_platforms",
	"impressions",
	"ad_creative_bodies",
	"ad_creative_link_titles",
	"ad_snapshot_url",
}

// MaxPages caps how many result pages one Search follows.
const MaxPages = 5

// Sentinel error classes. Every error returned by Search wraps exactly one.
var (
	ErrRateLimited = eris.New("metaads: rate limited")
	ErrAuthFailed  = eris.New("metaads: authentication failed")
	ErrUnavailable = eris.New("metaads: service unavailable")
)

// Client searches the ad library.
type Client interface {
	Search(ctx context.Context, q Query) (*SearchResponse, error)
}

// Query is one ads_archive search.
type Query struct {
	Terms     string
	Countries []string
	Status    string // ALL, ACTIVE or INACTIVE
	Limit     int
}

// SearchResponse is the parsed ads_archive response.
type SearchResponse struct {
	Data   []Ad   `json:"data"`
	Paging Paging `json:"paging"`
}

// Paging carries the cursor links Graph returns. Search follows Next until
// the query limit is met or MaxPages pages have been read.
type Paging struct {
	Next string `json:"next"`
}

// Ad is one archived ad.
type Ad struct {
	ID                 string      `json:"id"`
	PageID             string      `json:"page_id"`
	PageName           string      `json:"page_name"`
	DeliveryStartTime  string      `json:"ad_delivery_start_time"`
	DeliveryStopTime   string      `json:"ad_delivery_stop_time"`
	PublisherPlatforms []string    `json:"publisher_platforms"`
	Impressions        Impressions `json:"impressions"`
	CreativeBodies     []string    `json:"ad_creative_bodies"`
	CreativeLinkTitles []string    `json:"ad_creative_link_titles"`
	SnapshotURL        string      `json:"ad_snapshot_url"`
}

// Impressions is the reported impression bucket. Graph encodes the bounds
// as strings.
type Impressions struct {
	LowerBound FlexInt `json:"lower_bound"`
	UpperBound FlexInt `json:"upper_bound"`
}

// FlexInt decodes a JSON number or numeric string. Thousands separators
// are ignored.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.ReplaceAll(strings.Trim(string(b), `"`), ",", "")
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return eris.Wrapf(err, "metaads: parse integer %q", s)
	}
	*f = FlexInt(n)
	return nil
}

// ParseTime parses the date forms Graph uses for delivery times. An empty
// string yields the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("metaads: unrecognised time %q", s)
}

// APIError is a non-2xx response from Graph.
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
	class      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("metaads: status %d code %d: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap returns the sentinel class.
func (e *APIError) Unwrap() error { return e.class }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithAPIVersion sets the Graph API version path segment.
func WithAPIVersion(v string) Option {
	return func(c *httpClient) {
		if v != "" {
			c.version = v
		}
	}
}

// WithFields overrides the requested field list.
func WithFields(fields []string) Option {
	return func(c *httpClient) {
		if len(fields) > 0 {
			c.fields = fields
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	version string
	fields  []string
	http    *http.Client
}

// NewClient creates an ad library client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: "https://graph.facebook.com",
		version: "v18.0",
		fields:  DefaultFields,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	countries, err := json.Marshal(q.Countries)
	if err != nil {
		return nil, eris.Wrap(err, "metaads: encode countries")
	}
	status := q.Status
	if status == "" {
		status = "ALL"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	params := url.Values{}
	params.Set("access_token", c.token)
	params.Set("search_terms", q.Terms)
	params.Set("ad_reached_countries", string(countries))
	params.Set("ad_active_status", status)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", strings.Join(c.fields, ","))

	reqURL := fmt.Sprintf("%s/%s/ads_archive?%s", c.baseURL, c.version, params.Encode())

	var out SearchResponse
	for page := 0; page < MaxPages && reqURL != ""; page++ {
		resp, err := c.get(ctx, reqURL)
		if err != nil {
			return nil, err
		}
		out.Data = append(out.Data, resp.Data...)
		out.Paging = resp.Paging
		if len(resp.Data) == 0 || len(out.Data) >= limit {
			break
		}
		reqURL = resp.Paging.Next
	}
	if len(out.Data) > limit {
		out.Data = out.Data[:limit]
	}
	return &out, nil
}

// get fetches and decodes one ads_archive page.
func (c *httpClient) get(ctx context.Context, reqURL string) (*SearchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "metaads: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, eris.Wrapf(ErrUnavailable, "metaads: request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(ErrUnavailable, "metaads: read body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp.StatusCode, body)
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrapf(ErrUnavailable, "metaads: decode response: %v", err)
	}
	return &out, nil
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// parseError maps a Graph error payload to an APIError with its class.
// Codes 4, 17, 32 and 613 are Graph's throttling codes and 190 is an
// invalid or expired token.
func parseError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	var ge graphError
	if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
		apiErr.Code = ge.Error.Code
		apiErr.Type = ge.Error.Type
		apiErr.Message = ge.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusTooManyRequests,
		apiErr.Code == 4, apiErr.Code == 17, apiErr.Code == 32, apiErr.Code == 613:
		apiErr.class = ErrRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		apiErr.Code == 190, apiErr.Type == "OAuthException" && status == http.StatusBadRequest:
		apiErr.class = ErrAuthFailed
	default:
		apiErr.class = ErrUnavailable
	}
	return apiErr
}
