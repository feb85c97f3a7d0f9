package adintel

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/outreach-research/internal/model"
	"github.com/sells-group/outreach-research/pkg/metaads"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, req SearchRequest) ([]model.AdCandidate, error) {
	args := m.Called(ctx, req)
	ads, _ := args.Get(0).([]model.AdCandidate)
	return ads, args.Error(1)
}

func term(t string) any {
	return mock.MatchedBy(func(r SearchRequest) bool { return r.Term == t })
}

type mockMetaClient struct {
	mock.Mock
}

func (m *mockMetaClient) Search(ctx context.Context, q metaads.Query) (*metaads.SearchResponse, error) {
	args := m.Called(ctx, q)
	resp, _ := args.Get(0).(*metaads.SearchResponse)
	return resp, args.Error(1)
}
