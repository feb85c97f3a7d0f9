package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/outreach-research/internal/adintel"
	"github.com/sells-group/outreach-research/internal/fetch"
	"github.com/sells-group/outreach-research/internal/model"
	"github.com/sells-group/outreach-research/internal/schema"
	"github.com/sells-group/outreach-research/pkg/anthropic"
)

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Name() string { return "mock" }

func (m *mockFetcher) Fetch(ctx context.Context, locator string) (*fetch.Content, error) {
	args := m.Called(ctx, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fetch.Content), args.Error(1)
}

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, s *schema.Schema, text string, ec ExtractContext) (*model.ExtractionRecord, error) {
	args := m.Called(ctx, s, text, ec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExtractionRecord), args.Error(1)
}

// --- Generator Mock ---

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req GenerateRequest) (*model.GeneratedEmail, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GeneratedEmail), args.Error(1)
}

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: text}}}
}

// --- Searcher stub ---

// countingSearcher answers every variant search with ads and counts calls.
type countingSearcher struct {
	calls atomic.Int32
	ads   func(term string) []model.AdCandidate
}

func (s *countingSearcher) Search(_ context.Context, req adintel.SearchRequest) ([]model.AdCandidate, error) {
	s.calls.Add(1)
	if s.ads == nil {
		return nil, nil
	}
	return s.ads(req.Term), nil
}

// --- Fixtures ---

func pageContent(locator string) *fetch.Content {
	return &fetch.Content{
		Locator: locator,
		Source:  "mock",
		Pages:   []fetch.Page{{URL: "https://" + locator, Markdown: "# Acme Gym\nTrain with us."}},
	}
}

func record(identity, substance, breadth bool) *model.ExtractionRecord {
	fields := map[string]any{}
	if identity {
		fields[FieldCompanyName] = "Acme Gym"
	}
	if substance {
		fields[FieldPositioning] = "Open around the clock"
	}
	if breadth {
		fields[FieldPresence] = map[string]any{"email_marketing": "Monthly newsletter"}
	}
	return &model.ExtractionRecord{SchemaVersion: "test", Fields: fields}
}

func sufficientRecord() *model.ExtractionRecord {
	return record(true, true, true)
}

func sender() *model.SenderConfig {
	return &model.SenderConfig{Company: "Reach GmbH", Name: "Jo", ServiceOffering: "Meta ads management"}
}
