package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cdpops/segment-copier/internal/api"
	"github.com/cdpops/segment-copier/internal/config"
	"github.com/cdpops/segment-copier/internal/models"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			server := &api.Server{
				Jobs:   models.NewJobStore(),
				Runner: buildRunner(cfg, logger),
				Logger: logger,
			}

			logger.Info("segment copier starting",
				zap.String("version", version),
				zap.String("listen", cfg.Listen))
			return http.ListenAndServe(cfg.Listen, api.NewRouter(server))
		},
	}
}
