package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cdpops/segment-copier/internal/config"
	"github.com/cdpops/segment-copier/internal/copy"
	"github.com/cdpops/segment-copier/internal/workflow"

	"github.com/cdpops/segment-copier/internal/cdp"
)

var configFile string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "copier",
		Short:   "Copy CDP parent segment hierarchies between instances",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (YAML)")
	cmd.AddCommand(serveCmd(), copyCmd())
	return cmd
}

// buildRunner assembles a runner from loaded config.
func buildRunner(cfg *config.Config, logger *zap.Logger) *copy.Runner {
	r := copy.NewRunner(logger,
		cdp.WithRateLimit(cfg.RateLimit),
		cdp.WithRetryPolicy(cdp.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay.Std(),
			Factor:      2,
		}),
	)
	r.Poll = workflow.PollConfig{
		Initial:   cfg.PollInitialInterval.Std(),
		Max:       cfg.PollMaxInterval.Std(),
		Factor:    1.5,
		MaxErrors: 40,
		Timeout:   cfg.WorkflowTimeout.Std(),
	}
	return r
}

func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}
