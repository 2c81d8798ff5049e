package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/jina"
)

// JinaAdapter renders pages through Jina Reader. It returns text only.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.Breaker
	calc    *cost.Calculator
	ledger  *cost.Ledger
}

// NewJinaAdapter wraps a Jina client. calc and ledger may be nil.
func NewJinaAdapter(client jina.Client, breaker *resilience.Breaker, calc *cost.Calculator, ledger *cost.Ledger) *JinaAdapter {
	if breaker == nil {
		breaker = resilience.NewBreaker("jina", resilience.DefaultBreakerConfig())
	}
	return &JinaAdapter{client: client, breaker: breaker, calc: calc, ledger: ledger}
}

// Name implements Scraper.
func (j *JinaAdapter) Name() string { return "jina" }

// Scrape implements Scraper.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	resp, err := resilience.Call(ctx, j.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		return j.client.Read(ctx, targetURL)
	})
	if err != nil {
		return nil, err
	}
	if j.calc != nil {
		j.ledger.Add("jina", j.calc.Jina(resp.Data.Usage.Tokens))
	}

	text := strings.TrimSpace(resp.Data.Content)
	if text == "" {
		return nil, eris.Errorf("jina: empty content for %s", targetURL)
	}
	return &Page{
		URL:        targetURL,
		Title:      resp.Data.Title,
		Text:       text,
		StatusCode: 200,
		Source:     j.Name(),
	}, nil
}
