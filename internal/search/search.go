// Package search wraps the Serper client with the store's search cache and
// cost accounting, so repeated runs do not pay for the same query twice.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/serper"
)

// Searcher runs cached Serper searches.
type Searcher struct {
	client serper.Client
	store  store.Store
	ttl    time.Duration
	calc   *cost.Calculator
	ledger *cost.Ledger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithStore caches responses in st for ttl.
func WithStore(st store.Store, ttl time.Duration) Option {
	return func(s *Searcher) {
		s.store = st
		s.ttl = ttl
	}
}

// WithCost records the price of every uncached query.
func WithCost(calc *cost.Calculator, ledger *cost.Ledger) Option {
	return func(s *Searcher) {
		s.calc = calc
		s.ledger = ledger
	}
}

// New creates a Searcher.
func New(client serper.Client, opts ...Option) *Searcher {
	s := &Searcher{client: client, store: store.Nop{}, ttl: 7 * 24 * time.Hour}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search returns the cached response for req or calls Serper. Errors are
// never cached.
func (s *Searcher) Search(ctx context.Context, req serper.SearchRequest) (*serper.SearchResponse, error) {
	key := cacheKey(req)
	cached, ok, err := store.GetJSON[serper.SearchResponse](ctx, s.store, store.NamespaceSearch, key)
	if err != nil {
		zap.L().Debug("search: cache lookup failed", zap.String("query", req.Query), zap.Error(err))
	}
	if ok {
		zap.L().Debug("search: using cached result", zap.String("query", req.Query))
		return &cached, nil
	}

	resp, err := s.client.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.calc != nil {
		s.ledger.Add("serper", s.calc.SerperQuery())
	}
	if err := store.SetJSON(ctx, s.store, store.NamespaceSearch, key, resp, s.ttl); err != nil {
		zap.L().Debug("search: cache write failed", zap.String("query", req.Query), zap.Error(err))
	}
	return resp, nil
}

func cacheKey(req serper.SearchRequest) string {
	return fmt.Sprintf("%s|num=%d|gl=%s|hl=%s", req.Query, req.Num, req.Country, req.Language)
}
