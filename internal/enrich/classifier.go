package enrich

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/perplexity"
)

// SystemPrompt instructs the model to classify one company.
const SystemPrompt = `You are a company analyst. Given a company name and website content, return a JSON object (respond only in JSON format) with these fields:
- is_it_services: true/false based on website
- industry_summary: max 3 words describing the industry
- company_summary: exactly 10 words describing the company
- technologies_used: list of technologies mentioned in website; if none, infer from summary
- company_size: number or estimate (like 51-200)
- company_linkedin_url: official LinkedIn URL; null if not found
`

// noWebsiteText stands in for the website text when nothing could be fetched.
const noWebsiteText = "No website data"

// enrichmentSchema constrains Perplexity output.
var enrichmentSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "is_it_services": {"type": ["boolean", "null"]},
    "industry_summary": {"type": ["string", "null"]},
    "company_summary": {"type": ["string", "null"]},
    "technologies_used": {"type": "array", "items": {"type": "string"}},
    "company_size": {"type": ["string", "integer", "null"]},
    "company_linkedin_url": {"type": ["string", "null"]}
  },
  "required": ["is_it_services", "industry_summary", "company_summary", "technologies_used"]
}`)

// Classifier asks an LLM to classify a company.
type Classifier interface {
	Classify(ctx context.Context, company, websiteText string, existing model.Lead) (model.Enrichment, error)
	Name() string
}

// UserMessage builds the user turn: the company, its website text and the
// lead as it stands.
func UserMessage(company, websiteText string, existing model.Lead) (string, error) {
	if strings.TrimSpace(websiteText) == "" {
		websiteText = noWebsiteText
	}
	msg := struct {
		Company     string     `json:"company"`
		WebsiteText string     `json:"website_text"`
		Existing    model.Lead `json:"existing"`
	}{company, websiteText, existing}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", eris.Wrap(err, "enrich: marshal user message")
	}
	return string(data), nil
}

// cleanJSON extracts a JSON object from text that may be wrapped in markdown
// code fences or prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// ParseEnrichment decodes the model's JSON answer.
func ParseEnrichment(text string) (model.Enrichment, error) {
	var e model.Enrichment
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return e, eris.New("enrich: empty model response")
	}
	if err := json.Unmarshal([]byte(cleaned), &e); err != nil {
		return e, eris.Wrap(err, "enrich: parse model response")
	}
	return e, nil
}

// AnthropicClassifier classifies with Claude.
type AnthropicClassifier struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	breaker   *resilience.Breaker
	retry     resilience.RetryConfig
	calc      *cost.Calculator
	ledger    *cost.Ledger
}

// NewAnthropicClassifier creates an AnthropicClassifier. calc and ledger may
// be nil.
func NewAnthropicClassifier(client anthropic.Client, modelName string, maxTokens int, breaker *resilience.Breaker, retry resilience.RetryConfig, calc *cost.Calculator, ledger *cost.Ledger) *AnthropicClassifier {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if breaker == nil {
		breaker = resilience.NewBreaker("anthropic", resilience.DefaultBreakerConfig())
	}
	return &AnthropicClassifier{
		client:    client,
		model:     modelName,
		maxTokens: int64(maxTokens),
		breaker:   breaker,
		retry:     retry,
		calc:      calc,
		ledger:    ledger,
	}
}

// Name implements Classifier.
func (a *AnthropicClassifier) Name() string { return "anthropic" }

// Classify implements Classifier.
func (a *AnthropicClassifier) Classify(ctx context.Context, company, websiteText string, existing model.Lead) (model.Enrichment, error) {
	user, err := UserMessage(company, websiteText, existing)
	if err != nil {
		return model.Enrichment{}, err
	}
	temp := 0.0
	req := anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      []anthropic.SystemBlock{{Text: SystemPrompt, Cached: true}},
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	}

	retry := a.retry
	retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.Call(ctx, a.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return a.client.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		return model.Enrichment{}, err
	}
	if a.calc != nil {
		u := resp.Usage
		a.ledger.Add("anthropic", a.calc.Claude(a.model, u.InputTokens, u.OutputTokens, u.CacheCreationInputTokens, u.CacheReadInputTokens))
	}
	return ParseEnrichment(resp.Text())
}

// PerplexityClassifier classifies with Perplexity's sonar models, which can
// also search the web when the site itself gave nothing.
type PerplexityClassifier struct {
	client  perplexity.Client
	breaker *resilience.Breaker
	calc    *cost.Calculator
	ledger  *cost.Ledger
}

// NewPerplexityClassifier creates a PerplexityClassifier. The client retries
// on its own.
func NewPerplexityClassifier(client perplexity.Client, breaker *resilience.Breaker, calc *cost.Calculator, ledger *cost.Ledger) *PerplexityClassifier {
	if breaker == nil {
		breaker = resilience.NewBreaker("perplexity", resilience.DefaultBreakerConfig())
	}
	return &PerplexityClassifier{client: client, breaker: breaker, calc: calc, ledger: ledger}
}

// Name implements Classifier.
func (p *PerplexityClassifier) Name() string { return "perplexity" }

// Classify implements Classifier.
func (p *PerplexityClassifier) Classify(ctx context.Context, company, websiteText string, existing model.Lead) (model.Enrichment, error) {
	user, err := UserMessage(company, websiteText, existing)
	if err != nil {
		return model.Enrichment{}, err
	}
	temp := 0.0
	req := perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: user},
		},
		Temperature:    &temp,
		ResponseFormat: perplexity.JSONFormat(enrichmentSchema),
	}

	resp, err := resilience.Call(ctx, p.breaker, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return p.client.ChatCompletion(ctx, req)
	})
	if err != nil {
		return model.Enrichment{}, err
	}
	if p.calc != nil {
		p.ledger.Add("perplexity", p.calc.Perplexity(resp.Usage.TotalTokens))
	}
	return ParseEnrichment(resp.Content())
}
