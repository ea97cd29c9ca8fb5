package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fitcheck/engine/internal/fetch"
	"github.com/fitcheck/engine/internal/httpserver"
	"github.com/fitcheck/engine/internal/llm/anthropic"
	"github.com/fitcheck/engine/internal/pipeline"
	"github.com/fitcheck/engine/internal/profile"
	"github.com/fitcheck/engine/internal/resilience"
	"github.com/fitcheck/engine/internal/search"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fit-check streaming server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		p, err := profile.Load(cfg.Profile.Path)
		if err != nil {
			return err
		}

		cbCfg := resilience.FromCircuitConfig(cfg.Resilience.FailureThreshold, cfg.Resilience.FailureWindowSecs, cfg.Resilience.ResetTimeoutSecs)
		cbCfg.ShouldTrip = resilience.IsTransient
		cbCfg.OnStateChange = func(from, to resilience.CircuitState) {
			zap.L().Warn("circuit breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
		}
		breakers := resilience.NewServiceBreakers(cbCfg)

		retryCfg := resilience.FromRetryConfig(cfg.Resilience.MaxRetries, 500, 30000, 2.0, 0.25)
		retryCfg.OnRetry = resilience.RetryLogger("fitcheck", "llm_or_search")

		deps := &pipeline.Deps{
			LLM:                     anthropic.NewClient(cfg.Anthropic.Key),
			Search:                  search.NewClient(cfg.Search.Key, search.WithBaseURL(cfg.Search.BaseURL)),
			Fetch:                   fetch.NewClient(fetch.WithUserAgent(cfg.Fetch.UserAgent), fetch.WithMaxBytes(cfg.Fetch.MaxBytes), fetch.WithAllowInsecureTLS(cfg.Fetch.AllowInsecureTLS)),
			Profile:                 p,
			Breakers:                breakers,
			RetryCfg:                retryCfg,
			ReasoningModel:          cfg.Anthropic.ReasoningModel,
			StandardModel:           cfg.Anthropic.StandardModel,
			ReasoningTimeoutSecs:    cfg.Anthropic.ReasoningTimout,
			StandardTimeoutSecs:     cfg.Anthropic.StandardTimeout,
			MaxSearchQueries:        cfg.Pipeline.MaxSearchQueries,
			MaxFetchURLs:            cfg.Pipeline.MaxFetchURLs,
			MaxJudgeConcurrency:     cfg.Pipeline.MaxJudgeConcurrency,
			MaxEnhancementQueries:   cfg.Pipeline.MaxEnhancementQueries,
			RerankerAdjustmentBound: cfg.Pipeline.RerankerAdjustmentBound,
			FundamentalMismatchCap:  cfg.Pipeline.FundamentalMismatchCap,
			MinGapsRequired:         cfg.Pipeline.MinGapsRequired,
		}

		env := &httpserver.Env{
			Deps:     deps,
			Profile:  p,
			Breakers: breakers,
			EngineCfg: pipeline.EngineConfig{
				MaxSearchAttempts:       cfg.Pipeline.MaxSearchAttempts,
				WholePipelineTimeoutSecs: cfg.Pipeline.WholePipelineTimeoutSec,
			},
		}

		port := resolvePort(servePort, cfg.Server.Port)
		mux := httpserver.BuildMux(env, cfg.Server.RateLimitPerMin, cfg.Server.RateLimitBurst)
		return httpserver.Serve(ctx, mux, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func resolvePort(flagPort, configPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return configPort
}
