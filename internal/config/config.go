package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Profile    ProfileConfig    `yaml:"profile" mapstructure:"profile"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key             string `yaml:"key" mapstructure:"key"`
	ReasoningModel  string `yaml:"reasoning_model" mapstructure:"reasoning_model"`
	StandardModel   string `yaml:"standard_model" mapstructure:"standard_model"`
	ReasoningTimout int    `yaml:"reasoning_timeout_secs" mapstructure:"reasoning_timeout_secs"`
	StandardTimeout int    `yaml:"standard_timeout_secs" mapstructure:"standard_timeout_secs"`
}

// SearchConfig holds web-search collaborator settings.
type SearchConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	MaxResults    int    `yaml:"max_results" mapstructure:"max_results"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FetchConfig holds the HTTP content-fetch collaborator settings (Phase 2c).
type FetchConfig struct {
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes        int    `yaml:"max_bytes" mapstructure:"max_bytes"`
	AllowInsecureTLS bool  `yaml:"allow_insecure_tls" mapstructure:"allow_insecure_tls"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Search    SearchPricing           `yaml:"search" mapstructure:"search"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// SearchPricing holds web-search provider pricing.
type SearchPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// PipelineConfig configures pipeline-wide thresholds and budgets.
type PipelineConfig struct {
	MaxSearchAttempts       int     `yaml:"max_search_attempts" mapstructure:"max_search_attempts"`
	MaxSearchQueries        int     `yaml:"max_search_queries" mapstructure:"max_search_queries"`
	MaxFetchURLs            int     `yaml:"max_fetch_urls" mapstructure:"max_fetch_urls"`
	MaxJudgeConcurrency     int     `yaml:"max_judge_concurrency" mapstructure:"max_judge_concurrency"`
	MaxEnhancementQueries   int     `yaml:"max_enhancement_queries" mapstructure:"max_enhancement_queries"`
	RerankerAdjustmentBound int     `yaml:"reranker_adjustment_bound" mapstructure:"reranker_adjustment_bound"`
	FundamentalMismatchCap  int     `yaml:"fundamental_mismatch_cap" mapstructure:"fundamental_mismatch_cap"`
	MinGapsRequired         int     `yaml:"min_gaps_required" mapstructure:"min_gaps_required"`
	WholePipelineTimeoutSec int     `yaml:"whole_pipeline_timeout_secs" mapstructure:"whole_pipeline_timeout_secs"`
}

// ProfileConfig locates the static engineer-profile fixture.
type ProfileConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the SSE HTTP server.
type ServerConfig struct {
	Port              int `yaml:"port" mapstructure:"port"`
	RateLimitPerMin   int `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	RateLimitBurst    int `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ResilienceConfig configures circuit breakers and retries for external
// collaborators (LLM vendor, search provider, fetch target).
type ResilienceConfig struct {
	FailureThreshold  int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	FailureWindowSecs int `yaml:"failure_window_secs" mapstructure:"failure_window_secs"`
	ResetTimeoutSecs  int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	HalfOpenMaxProbes int `yaml:"half_open_max_probes" mapstructure:"half_open_max_probes"`
	MaxRetries        int `yaml:"max_retries" mapstructure:"max_retries"`
}

// Validate checks required configuration fields based on run mode.
// Supported modes: "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Profile.Path == "" {
			errs = append(errs, "profile.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Pipeline.MaxSearchAttempts < 1 {
		errs = append(errs, "pipeline.max_search_attempts must be >= 1")
	}
	if c.Pipeline.MaxSearchQueries < 1 || c.Pipeline.MaxSearchQueries > 5 {
		errs = append(errs, "pipeline.max_search_queries must be between 1 and 5")
	}
	if c.Pipeline.MaxFetchURLs < 1 || c.Pipeline.MaxFetchURLs > 5 {
		errs = append(errs, "pipeline.max_fetch_urls must be between 1 and 5")
	}
	if c.Pipeline.MaxJudgeConcurrency < 1 || c.Pipeline.MaxJudgeConcurrency > 4 {
		errs = append(errs, "pipeline.max_judge_concurrency must be between 1 and 4")
	}
	if c.Pipeline.MinGapsRequired < 1 {
		errs = append(errs, "pipeline.min_gaps_required must be >= 1")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: validation failed: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FITCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_per_minute", 30)
	v.SetDefault("server.rate_limit_burst", 5)

	v.SetDefault("anthropic.reasoning_model", "claude-opus-4-6")
	v.SetDefault("anthropic.standard_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.reasoning_timeout_secs", 30)
	v.SetDefault("anthropic.standard_timeout_secs", 15)

	v.SetDefault("search.base_url", "https://api.tavily.com")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout_secs", 10)

	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.user_agent", "fitcheck-engine/1.0 (+https://fitcheck.example/bot)")
	v.SetDefault("fetch.max_bytes", 100*1024)
	v.SetDefault("fetch.allow_insecure_tls", false)

	v.SetDefault("pipeline.max_search_attempts", 2)
	v.SetDefault("pipeline.max_search_queries", 5)
	v.SetDefault("pipeline.max_fetch_urls", 5)
	v.SetDefault("pipeline.max_judge_concurrency", 4)
	v.SetDefault("pipeline.max_enhancement_queries", 5)
	v.SetDefault("pipeline.reranker_adjustment_bound", 30)
	v.SetDefault("pipeline.fundamental_mismatch_cap", 35)
	v.SetDefault("pipeline.min_gaps_required", 2)
	v.SetDefault("pipeline.whole_pipeline_timeout_secs", 120)

	v.SetDefault("profile.path", "testdata/profile.yaml")

	v.SetDefault("pricing.search.per_query", 0.005)

	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.failure_window_secs", 60)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("resilience.half_open_max_probes", 1)
	v.SetDefault("resilience.max_retries", 2)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
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
