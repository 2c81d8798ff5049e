// Package cost prices the paid API calls a pipeline stage makes.
package cost

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityRate       `yaml:"perplexity" mapstructure:"perplexity"`
	Serper     PerQueryRate         `yaml:"serper" mapstructure:"serper"`
	Jina       JinaRate             `yaml:"jina" mapstructure:"jina"`
	Firecrawl  PerQueryRate         `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// ModelRate holds per-model token pricing in USD per million tokens.
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// PerplexityRate is a request fee plus token pricing.
type PerplexityRate struct {
	PerRequest float64 `yaml:"per_request" mapstructure:"per_request"`
	PerMTok    float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// PerQueryRate is a flat price per call.
type PerQueryRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// JinaRate holds Jina Reader pricing.
type JinaRate struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// DefaultRates returns list prices at the time of writing.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 1.00, Output: 5.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Perplexity: PerplexityRate{PerRequest: 0.005, PerMTok: 1.00},
		Serper:     PerQueryRate{PerQuery: 0.001},
		Jina:       JinaRate{PerMTok: 0.02},
		Firecrawl:  PerQueryRate{PerQuery: 0.00083},
	}
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude prices one Messages call. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	in := float64(input) / 1e6 * rate.Input
	out := float64(output) / 1e6 * rate.Output
	cw := float64(cacheWrite) / 1e6 * rate.Input * rate.CacheWriteMul
	cr := float64(cacheRead) / 1e6 * rate.Input * rate.CacheReadMul
	return in + out + cw + cr
}

// Perplexity prices one chat completion.
func (c *Calculator) Perplexity(totalTokens int) float64 {
	return c.rates.Perplexity.PerRequest + float64(totalTokens)/1e6*c.rates.Perplexity.PerMTok
}

// SerperQuery returns the flat cost of one search.
func (c *Calculator) SerperQuery() float64 {
	return c.rates.Serper.PerQuery
}

// Jina prices Reader token usage.
func (c *Calculator) Jina(tokens int) float64 {
	return float64(tokens) / 1e6 * c.rates.Jina.PerMTok
}

// FirecrawlScrape returns the flat cost of one scrape.
func (c *Calculator) FirecrawlScrape() float64 {
	return c.rates.Firecrawl.PerQuery
}

// Ledger accumulates spend per provider over a stage run. Safe for
// concurrent use. A nil Ledger ignores everything.
type Ledger struct {
	mu    sync.Mutex
	spend map[string]float64
	calls map[string]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{spend: make(map[string]float64), calls: make(map[string]int)}
}

// Add records one call to provider costing usd.
func (l *Ledger) Add(provider string, usd float64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spend[provider] += usd
	l.calls[provider]++
}

// Total returns the summed spend.
func (l *Ledger) Total() float64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var t float64
	for _, v := range l.spend {
		t += v
	}
	return t
}

// Calls returns how many calls were recorded for provider.
func (l *Ledger) Calls(provider string) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[provider]
}

// Log writes one line per provider plus the total.
func (l *Ledger) Log(stage string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	providers := make([]string, 0, len(l.spend))
	for p := range l.spend {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	for _, p := range providers {
		zap.L().Info("cost attribution",
			zap.String("stage", stage),
			zap.String("provider", p),
			zap.Int("calls", l.calls[p]),
			zap.Float64("estimated_cost_usd", l.spend[p]),
		)
	}
	l.mu.Unlock()

	zap.L().Info("stage cost", zap.String("stage", stage), zap.Float64("estimated_cost_usd", l.Total()))
}
