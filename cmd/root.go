package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fitcheck/engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fitcheck",
	Short: "Fit-check analysis engine",
	Long:  "Streams a calibrated fit assessment of a fixed engineer profile against an employer or job query.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if v, _ := cmd.Flags().GetString("reasoning-model"); v != "" {
			cfg.Anthropic.ReasoningModel = v
		}
		if v, _ := cmd.Flags().GetString("standard-model"); v != "" {
			cfg.Anthropic.StandardModel = v
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("reasoning-model", "", "override the reasoning-class model (e.g. claude-opus-4-6)")
	rootCmd.PersistentFlags().String("standard-model", "", "override the standard-class model (e.g. claude-sonnet-4-5-20250929)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
