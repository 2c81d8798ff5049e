package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/clean"
	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/rules"
	"github.com/sells-group/leadgen-cli/internal/scrape"
	"github.com/sells-group/leadgen-cli/internal/search"
	"github.com/sells-group/leadgen-cli/internal/store"
	anthropicpkg "github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/firecrawl"
	"github.com/sells-group/leadgen-cli/pkg/jina"
	"github.com/sells-group/leadgen-cli/pkg/notion"
	"github.com/sells-group/leadgen-cli/pkg/perplexity"
	sfpkg "github.com/sells-group/leadgen-cli/pkg/salesforce"
	"github.com/sells-group/leadgen-cli/pkg/serper"
)

// stageEnv holds what every stage command shares: the store, the keyword
// rules and cost tracking. API clients are built on demand so a stage only
// needs the keys it uses.
type stageEnv struct {
	Store    store.Store
	Rules    *rules.Rules
	Calc     *cost.Calculator
	Ledger   *cost.Ledger
	Breakers *resilience.Breakers
}

// Close releases the store.
func (e *stageEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the store and loads the rules. Callers should defer
// env.Close().
func initEnv(ctx context.Context) (*stageEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	r, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &stageEnv{
		Store:    st,
		Rules:    r,
		Calc:     cost.NewCalculator(cfg.Pricing),
		Ledger:   cost.NewLedger(),
		Breakers: resilience.NewBreakers(resilience.DefaultBreakerConfig()),
	}, nil
}

// withEnv validates cfg for mode, opens a stageEnv and runs fn with a
// context canceled on SIGINT or SIGTERM. An empty mode skips validation.
func withEnv(cmd *cobra.Command, mode string, fn func(ctx context.Context, e *stageEnv) error) error {
	if mode != "" {
		if err := cfg.Validate(mode); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	err = fn(ctx, e)
	e.Ledger.Log(cmd.CommandPath())
	return err
}

// runStage runs fn as the named stage. The run is recorded in the store and
// its stats carry the spend fn added to the ledger.
func runStage(ctx context.Context, e *stageEnv, name, in, out string, fn func(ctx context.Context) (model.RunStats, error)) (model.RunStats, error) {
	run, err := e.Store.CreateRun(ctx, name, in, out)
	if err != nil {
		zap.L().Warn("record run failed", zap.String("stage", name), zap.Error(err))
	}

	start := time.Now()
	before := e.Ledger.Total()
	stats, runErr := fn(ctx)
	stats.CostUSD = e.Ledger.Total() - before

	status, msg := model.RunStatusComplete, ""
	if runErr != nil {
		status, msg = model.RunStatusFailed, runErr.Error()
	}
	if run != nil && run.ID != "" {
		// Record the outcome even when ctx was canceled.
		if err := e.Store.FinishRun(context.WithoutCancel(ctx), run.ID, status, stats, msg); err != nil {
			zap.L().Warn("finish run failed", zap.String("stage", name), zap.Error(err))
		}
	}

	zap.L().Info("stage finished",
		zap.String("stage", name),
		zap.String("status", string(status)),
		zap.Int("total", stats.Total),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Float64("cost_usd", stats.CostUSD),
		zap.Duration("elapsed", time.Since(start)),
	)
	return stats, runErr
}

func retryConfig(service, operation string) resilience.RetryConfig {
	r := cfg.Retry.Resilience()
	r.OnRetry = resilience.RetryLogger(service, operation)
	return r
}

func (e *stageEnv) cacheTTL() time.Duration {
	return time.Duration(cfg.Store.CacheTTLHrs) * time.Hour
}

// Cleaner returns a company name cleaner using the loaded rules.
func (e *stageEnv) Cleaner() *clean.Cleaner {
	return clean.New(e.Rules)
}

// Searcher returns a rate limited Serper client behind the search cache.
func (e *stageEnv) Searcher() *search.Searcher {
	client := serper.NewClient(cfg.Serper.Key,
		serper.WithBaseURL(cfg.Serper.BaseURL),
		serper.WithRateLimit(cfg.Serper.RPS),
		serper.WithRetry(retryConfig("serper", "search")),
	)
	return search.New(client,
		search.WithStore(e.Store, e.cacheTTL()),
		search.WithCost(e.Calc, e.Ledger),
	)
}

// LocalScraper fetches pages directly with the crawl settings.
func (e *stageEnv) LocalScraper() *scrape.LocalScraper {
	return scrape.NewLocalScraper(
		scrape.WithTimeout(time.Duration(cfg.Crawl.TimeoutSecs)*time.Second),
		scrape.WithUserAgent(cfg.Crawl.UserAgent),
	)
}

// PageScraper fetches directly, then through Jina and Firecrawl when they
// are configured.
func (e *stageEnv) PageScraper() *scrape.Chain {
	scrapers := []scrape.Scraper{e.LocalScraper()}
	if cfg.Jina.Enabled {
		client := jina.NewClient(cfg.Jina.Key,
			jina.WithBaseURL(cfg.Jina.BaseURL),
			jina.WithRetry(retryConfig("jina", "read")),
		)
		scrapers = append(scrapers, scrape.NewJinaAdapter(client, e.Breakers.Get("jina"), e.Calc, e.Ledger))
	}
	if cfg.Firecrawl.Key != "" {
		client := firecrawl.NewClient(cfg.Firecrawl.Key,
			firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL),
			firecrawl.WithRetry(retryConfig("firecrawl", "scrape")),
		)
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(client, e.Breakers.Get("firecrawl"), e.Calc, e.Ledger))
	}

	chain := scrape.NewChain(scrapers...)
	zap.L().Debug("scrape chain", zap.Strings("scrapers", chain.Names()))
	return chain
}

// Classifier returns the configured LLM classifier.
func (e *stageEnv) Classifier() (enrich.Classifier, error) {
	switch cfg.Enrich.Provider {
	case "", "anthropic":
		// Retries happen in the classifier so they go through the breaker.
		client := anthropicpkg.NewClient(cfg.Anthropic.Key, anthropicpkg.WithMaxRetries(0))
		return enrich.NewAnthropicClassifier(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens,
			e.Breakers.Get("anthropic"), retryConfig("anthropic", "create_message"), e.Calc, e.Ledger), nil
	case "perplexity":
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
			perplexity.WithRetry(retryConfig("perplexity", "chat_completion")),
		)
		return enrich.NewPerplexityClassifier(client, e.Breakers.Get("perplexity"), e.Calc, e.Ledger), nil
	default:
		return nil, eris.Errorf("unsupported enrich provider: %s", cfg.Enrich.Provider)
	}
}

// Enricher returns an Enricher wired to the configured classifier, the page
// scrape chain and the store.
func (e *stageEnv) Enricher(limit int) (*enrich.Enricher, error) {
	classifier, err := e.Classifier()
	if err != nil {
		return nil, err
	}
	return enrich.New(classifier, e.PageScraper(),
		enrich.WithStore(e.Store, e.cacheTTL()),
		enrich.WithRateLimit(cfg.Enrich.RPS),
		enrich.WithMaxTextChars(cfg.Enrich.MaxTextChars),
		enrich.WithSaveEvery(cfg.Enrich.SaveEvery),
		enrich.WithLimit(limit),
	), nil
}

// Notion returns a rate limited Notion client.
func (e *stageEnv) Notion() notion.Client {
	return notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RPS))
}

// Salesforce authenticates with the JWT bearer flow.
func (e *stageEnv) Salesforce() (sfpkg.Client, error) {
	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RPS)), nil
}
