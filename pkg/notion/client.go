// Package notion pushes lead rows into a Notion database.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultRPS is Notion's documented average request rate per integration.
const DefaultRPS = 3.0

// Client is the slice of the Notion API that the lead push needs.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// Option configures NewClient.
type Option func(*sdkClient)

// WithRateLimit sets requests per second. Zero or less disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *sdkClient) {
		c.limiter = newLimiter(rps)
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
}

type sdkClient struct {
	api     *notionapi.Client
	limiter *rate.Limiter
}

// NewClient returns a Client for the integration token, throttled to
// DefaultRPS unless overridden.
func NewClient(token string, opts ...Option) Client {
	c := &sdkClient{
		api:     notionapi.NewClient(notionapi.Token(token)),
		limiter: newLimiter(DefaultRPS),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call waits for a limiter slot and then runs fn, wrapping any error with op.
func call[T any](ctx context.Context, lim *rate.Limiter, op string, fn func() (T, error)) (T, error) {
	var zero T
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return zero, eris.Wrapf(err, "notion: %s: throttle", op)
		}
	}
	v, err := fn()
	if err != nil {
		return zero, eris.Wrapf(err, "notion: %s", op)
	}
	return v, nil
}

func (c *sdkClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return call(ctx, c.limiter, "query "+dbID, func() (*notionapi.DatabaseQueryResponse, error) {
		return c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	})
}

func (c *sdkClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return call(ctx, c.limiter, "create page", func() (*notionapi.Page, error) {
		return c.api.Page.Create(ctx, req)
	})
}

func (c *sdkClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	return call(ctx, c.limiter, "update page "+pageID, func() (*notionapi.Page, error) {
		return c.api.Page.Update(ctx, notionapi.PageID(pageID), req)
	})
}
