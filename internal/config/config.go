package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Serper     SerperConfig     `yaml:"serper" mapstructure:"serper"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Naukri     NaukriConfig     `yaml:"naukri" mapstructure:"naukri"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Store      store.Config     `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Rules      RulesConfig      `yaml:"rules" mapstructure:"rules"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SerperConfig holds Serper.dev search API settings.
type SerperConfig struct {
	Key     string  `yaml:"key" mapstructure:"key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina AI Reader settings. The reader works without a key
// at a lower rate limit.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// FirecrawlConfig holds Firecrawl API settings (fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string  `yaml:"token" mapstructure:"token"`
	LeadDB string  `yaml:"lead_db" mapstructure:"lead_db"`
	RPS    float64 `yaml:"rps" mapstructure:"rps"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
	// ProfileField is the Lead field holding the LinkedIn profile URL,
	// used to update instead of duplicate.
	ProfileField string  `yaml:"profile_field" mapstructure:"profile_field"`
	RPS          float64 `yaml:"rps" mapstructure:"rps"`
}

// NaukriConfig configures the job listing scrape.
type NaukriConfig struct {
	Query    string `yaml:"query" mapstructure:"query"`
	Location string `yaml:"location" mapstructure:"location"`
	MaxPages int    `yaml:"max_pages" mapstructure:"max_pages"`
	Headless bool   `yaml:"headless" mapstructure:"headless"`
	// ScrollWaitMs is how long to wait after scrolling a results page.
	ScrollWaitMs int    `yaml:"scroll_wait_ms" mapstructure:"scroll_wait_ms"`
	BrowserBin   string `yaml:"browser_bin" mapstructure:"browser_bin"`
}

// CrawlConfig configures company website fetches.
type CrawlConfig struct {
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	RPS           float64 `yaml:"rps" mapstructure:"rps"`
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// SearchConfig configures the LinkedIn profile search.
type SearchConfig struct {
	MaxQueries    int `yaml:"max_queries" mapstructure:"max_queries"`
	ResultsPerQry int `yaml:"results_per_query" mapstructure:"results_per_query"`
}

// EnrichConfig configures LLM classification.
type EnrichConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"` // anthropic, perplexity
	SaveEvery    int     `yaml:"save_every" mapstructure:"save_every"`
	MaxTextChars int     `yaml:"max_text_chars" mapstructure:"max_text_chars"`
	RPS          float64 `yaml:"rps" mapstructure:"rps"`
}

// RetryConfig configures backoff for every outbound API.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// Resilience converts the settings to a resilience.RetryConfig.
func (r RetryConfig) Resilience() resilience.RetryConfig {
	return resilience.FromSettings(r.MaxAttempts, r.InitialBackoffMs, r.MaxBackoffMs)
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures run health alerts.
type MonitoringConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	// FailureRateThreshold alerts when failed/finished stage runs exceeds it.
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	// ItemFailureRateThreshold alerts when failed/total items across runs
	// exceeds it. Zero disables.
	ItemFailureRateThreshold float64 `yaml:"item_failure_rate_threshold" mapstructure:"item_failure_rate_threshold"`
	// CostThresholdUSD alerts on spend within the window. Zero disables.
	CostThresholdUSD    float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	LookbackWindowHours int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs   int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// RulesConfig points at an optional YAML file overriding the keyword lists.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{
		"serper.key", "anthropic.key", "perplexity.key", "jina.key", "firecrawl.key",
		"notion.token", "notion.lead_db", "salesforce.client_id", "salesforce.username",
		"salesforce.key_path", "store.dsn", "rules.path", "monitoring.webhook_url",
	} {
		_ = v.BindEnv(key)
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.cache_ttl_hours", 24*7)
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("serper.rps", 1.0)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.enabled", true)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("notion.rps", 3.0)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.profile_field", "LinkedIn_Profile__c")
	v.SetDefault("salesforce.rps", 5.0)
	v.SetDefault("naukri.query", "Lead Generation")
	v.SetDefault("naukri.location", "India")
	v.SetDefault("naukri.max_pages", 50)
	v.SetDefault("naukri.headless", true)
	v.SetDefault("naukri.scroll_wait_ms", 2000)
	v.SetDefault("crawl.timeout_secs", 10)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0")
	v.SetDefault("crawl.rps", 1.0)
	v.SetDefault("crawl.max_concurrent", 4)
	v.SetDefault("search.max_queries", 1000)
	v.SetDefault("search.results_per_query", 5)
	v.SetDefault("enrich.provider", "anthropic")
	v.SetDefault("enrich.save_every", 5)
	v.SetDefault("enrich.max_text_chars", 20000)
	v.SetDefault("enrich.rps", 5.0)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.item_failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.cost_threshold_usd", 50.0)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)

	rates := cost.DefaultRates()
	v.SetDefault("pricing.perplexity.per_request", rates.Perplexity.PerRequest)
	v.SetDefault("pricing.perplexity.per_mtok", rates.Perplexity.PerMTok)
	v.SetDefault("pricing.serper.per_query", rates.Serper.PerQuery)
	v.SetDefault("pricing.jina.per_mtok", rates.Jina.PerMTok)
	v.SetDefault("pricing.firecrawl.per_query", rates.Firecrawl.PerQuery)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if len(cfg.Pricing.Anthropic) == 0 {
		cfg.Pricing.Anthropic = rates.Anthropic
	}

	return &cfg, nil
}

// Validate checks that the keys a command needs are present. mode names the
// command group: jobs, websites, pages, search, fill, enrich, push-notion,
// push-salesforce, run or serve.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, key string) {
		if !ok {
			errs = append(errs, key+" is required")
		}
	}

	switch mode {
	case "jobs":
		if c.Naukri.MaxPages < 1 {
			errs = append(errs, "naukri.max_pages must be > 0")
		}
	case "pages":
	case "websites", "search", "fill":
		require(c.Serper.Key != "", "serper.key")
	case "enrich":
		errs = append(errs, c.validateEnrich()...)
	case "push-notion":
		require(c.Notion.Token != "", "notion.token")
		require(c.Notion.LeadDB != "", "notion.lead_db")
	case "push-salesforce":
		require(c.Salesforce.ClientID != "", "salesforce.client_id")
		require(c.Salesforce.Username != "", "salesforce.username")
		require(c.Salesforce.KeyPath != "", "salesforce.key_path")
	case "run":
		require(c.Serper.Key != "", "serper.key")
		errs = append(errs, c.validateEnrich()...)
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		errs = append(errs, c.validateEnrich()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Crawl.MaxConcurrent < 1 || c.Crawl.MaxConcurrent > 50 {
		errs = append(errs, "crawl.max_concurrent must be between 1 and 50")
	}
	switch c.Store.Driver {
	case "", "none", "sqlite":
	case "postgres":
		require(c.Store.DSN != "", "store.dsn")
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateEnrich() []string {
	switch c.Enrich.Provider {
	case "", "anthropic":
		if c.Anthropic.Key == "" {
			return []string{"anthropic.key is required"}
		}
	case "perplexity":
		if c.Perplexity.Key == "" {
			return []string{"perplexity.key is required"}
		}
	default:
		return []string{fmt.Sprintf("enrich.provider %q is not supported", c.Enrich.Provider)}
	}
	if c.Enrich.SaveEvery < 1 {
		return []string{"enrich.save_every must be > 0"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
