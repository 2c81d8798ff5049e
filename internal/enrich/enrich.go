// Package enrich classifies each lead's company with an LLM: whether it is
// an IT services firm, its industry, a one-line summary and the technologies
// it uses.
package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/htmltext"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/scrape"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// Defaults for an Enricher.
const (
	DefaultSaveEvery    = 5
	DefaultMaxTextChars = 20000
)

// Paths names the files an enrichment run reads and writes.
type Paths struct {
	In      string
	Out     string
	Partial string
}

// Enricher classifies companies and merges the result into leads.
type Enricher struct {
	classifier   Classifier
	pages        scrape.Scraper
	store        store.Store
	ttl          time.Duration
	limiter      *rate.Limiter
	maxTextChars int
	saveEvery    int
	limit        int

	memo     map[string]model.Enrichment
	failures *resilience.Failures
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithStore persists successful enrichments in st for ttl.
func WithStore(st store.Store, ttl time.Duration) Option {
	return func(e *Enricher) {
		e.store = st
		e.ttl = ttl
	}
}

// WithRateLimit caps classifier calls per second. Zero disables.
func WithRateLimit(rps float64) Option {
	return func(e *Enricher) {
		if rps <= 0 {
			e.limiter = nil
			return
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithMaxTextChars truncates website text sent to the model.
func WithMaxTextChars(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.maxTextChars = n
		}
	}
}

// WithSaveEvery writes the partial file after every n leads.
func WithSaveEvery(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.saveEvery = n
		}
	}
}

// WithLimit stops after n leads. Zero means all.
func WithLimit(n int) Option {
	return func(e *Enricher) { e.limit = n }
}

// New creates an Enricher. pages fetches website text and may be nil, in
// which case the model only sees the company name and lead.
func New(classifier Classifier, pages scrape.Scraper, opts ...Option) *Enricher {
	e := &Enricher{
		classifier:   classifier,
		pages:        pages,
		store:        store.Nop{},
		ttl:          7 * 24 * time.Hour,
		limiter:      rate.NewLimiter(5, 1),
		maxTextChars: DefaultMaxTextChars,
		saveEvery:    DefaultSaveEvery,
		memo:         make(map[string]model.Enrichment),
		failures:     resilience.NewFailures("companies enrich"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CacheKey is the company website when known, else the company name.
func CacheKey(l model.Lead) string {
	if w := l.Website(); w != "" {
		return w
	}
	return l.Company
}

// WebsiteText fetches the visible text of website, truncated. A page with no
// body text falls back to its title. Any failure yields "".
func (e *Enricher) WebsiteText(ctx context.Context, website string) string {
	if e.pages == nil || !IsUsable(website) {
		return ""
	}
	page, err := e.pages.Scrape(ctx, website)
	if err != nil {
		zap.L().Warn("enrich: website fetch failed", zap.String("url", website), zap.Error(err))
		return ""
	}
	text := strings.TrimSpace(page.Text)
	if text == "" {
		text = strings.TrimSpace(page.Title)
	}
	return htmltext.Truncate(text, e.maxTextChars)
}

// Enrich returns the enrichment for l's company, from the run memo, the
// store or the classifier. A classifier failure yields the fallback
// enrichment; the error is returned only for context cancellation.
func (e *Enricher) Enrich(ctx context.Context, l model.Lead) (model.Enrichment, bool, error) {
	key := CacheKey(l)
	if cached, ok := e.memo[key]; ok {
		return cached, true, nil
	}

	cached, ok, err := store.GetJSON[model.Enrichment](ctx, e.store, store.NamespaceEnrichment, key)
	if err != nil {
		zap.L().Debug("enrich: cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		e.memo[key] = cached
		return cached, true, nil
	}

	text := e.WebsiteText(ctx, l.Website())
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return model.Enrichment{}, false, eris.Wrap(err, "enrich: rate limit")
		}
	}

	enriched, err := e.classifier.Classify(ctx, l.Company, text, l)
	if err != nil {
		if ctx.Err() != nil {
			return model.Enrichment{}, false, eris.Wrap(ctx.Err(), "enrich: classify")
		}
		zap.L().Warn("enrich: classification failed, using fallback",
			zap.String("company", l.Company),
			zap.String("provider", e.classifier.Name()),
			zap.Error(err),
		)
		e.failures.Add(key, err)
		fallback := model.FallbackEnrichment(l)
		e.memo[key] = fallback
		return fallback, false, nil
	}

	e.memo[key] = enriched
	if err := store.SetJSON(ctx, e.store, store.NamespaceEnrichment, key, enriched, e.ttl); err != nil {
		zap.L().Debug("enrich: cache write failed", zap.String("key", key), zap.Error(err))
	}
	return enriched, false, nil
}

// Run enriches the leads in paths.In in order, saving progress to
// paths.Partial every saveEvery leads and everything to paths.Out at the end.
func (e *Enricher) Run(ctx context.Context, paths Paths) (model.RunStats, error) {
	var stats model.RunStats

	leads, err := artifact.ReadJSON[model.Lead](paths.In)
	if err != nil {
		return stats, err
	}
	zap.L().Info("enrich: loaded leads", zap.Int("count", len(leads)), zap.String("provider", e.classifier.Name()))

	results := make([]model.Lead, 0, len(leads))
	for i, lead := range leads {
		if e.limit > 0 && i >= e.limit {
			break
		}
		zap.L().Info("enrich: enriching",
			zap.Int("index", i+1),
			zap.Int("total", len(leads)),
			zap.String("company", lead.Company),
		)

		failedBefore := e.failures.Len()
		enriched, cached, err := e.Enrich(ctx, lead)
		if err != nil {
			// Keep what is done so far.
			if len(results) > 0 && paths.Partial != "" {
				_ = artifact.WriteJSON(paths.Partial, results)
			}
			return stats, err
		}
		enriched.Apply(&lead)
		results = append(results, lead)

		stats.Total++
		switch {
		case e.failures.Len() > failedBefore:
			stats.Failed++
		case cached:
			stats.Skipped++
		default:
			stats.Succeeded++
		}

		if paths.Partial != "" && (i+1)%e.saveEvery == 0 {
			if err := artifact.WriteJSON(paths.Partial, results); err != nil {
				return stats, err
			}
			zap.L().Info("enrich: partial save", zap.Int("count", i+1), zap.String("path", paths.Partial))
		}
	}

	if err := artifact.WriteJSON(paths.Out, results); err != nil {
		return stats, err
	}
	zap.L().Info("enrich: complete", zap.Int("count", len(results)), zap.String("path", paths.Out))
	return stats, e.failures.WriteSidecar(paths.Out)
}

// IsUsable reports whether a website value is worth fetching.
func IsUsable(website string) bool {
	website = strings.TrimSpace(website)
	return website != "" && !model.IsWebsiteSentinel(website) && !strings.EqualFold(website, model.Unknown)
}
