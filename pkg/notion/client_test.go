package notion

import (
	"context"
	"errors"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

var _ Client = (*MockClient)(nil)

func TestNewClient_RateLimit(t *testing.T) {
	c := NewClient("secret").(*sdkClient)
	require.NotNil(t, c.limiter)
	assert.Equal(t, rate.Limit(DefaultRPS), c.limiter.Limit())
	assert.Equal(t, 3, c.limiter.Burst())

	c = NewClient("secret", WithRateLimit(0.5)).(*sdkClient)
	assert.Equal(t, rate.Limit(0.5), c.limiter.Limit())
	assert.Equal(t, 1, c.limiter.Burst())

	c = NewClient("secret", WithRateLimit(0)).(*sdkClient)
	assert.Nil(t, c.limiter)
}

func TestCall_CancelledWhileThrottled(t *testing.T) {
	lim := rate.NewLimiter(rate.Limit(0.001), 1)
	require.True(t, lim.Allow()) // drain the only token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := call(ctx, lim, "create page", func() (int, error) {
		called = true
		return 1, nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "notion: create page: throttle")
}

func TestCall_WrapsError(t *testing.T) {
	boom := errors.New("validation_error")
	_, err := call(context.Background(), nil, "update page p-1", func() (*notionapi.Page, error) {
		return nil, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "notion: update page p-1")
}

func TestCall_Unthrottled(t *testing.T) {
	got, err := call(context.Background(), nil, "query db", func() (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
