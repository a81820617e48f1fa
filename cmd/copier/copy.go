package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdpops/segment-copier/internal/config"
	"github.com/cdpops/segment-copier/internal/copy"
	"github.com/cdpops/segment-copier/internal/models"
)

func copyCmd() *cobra.Command {
	var (
		req      models.CopyRequest
		noAssets bool
	)
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Run one copy directly, streaming progress to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.CopyAssets = !noAssets
			if err := req.Validate(); err != nil {
				return err
			}
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			runner := buildRunner(cfg, logger)
			params := copy.Params{
				SrcParent:      req.MasterSegmentID,
				SrcKey:         req.APIKey,
				DstParent:      req.OutputMasterSegmentID,
				DstName:        req.MasterSegmentName,
				DstKey:         req.APIKeyOutput,
				Instance:       req.Instance,
				CopyAssets:     req.CopyAssets,
				CopyDataAssets: req.CopyDataAssets,
			}
			err = runner.Run(cmd.Context(), params, func(e models.Event) {
				out := os.Stdout
				if e.Type == models.EventError {
					out = os.Stderr
				}
				fmt.Fprintf(out, "[%s] %s\n", e.Type, e.Message)
			})
			return err
		},
	}

	cmd.Flags().StringVar(&req.MasterSegmentID, "source-id", "", "source parent segment id")
	cmd.Flags().StringVar(&req.APIKey, "source-key", "", "source API key")
	cmd.Flags().StringVar(&req.Instance, "instance", "US", "region instance (US, EMEA, Japan, Korea)")
	cmd.Flags().StringVar(&req.OutputMasterSegmentID, "dest-id", "", "destination parent segment id")
	cmd.Flags().StringVar(&req.MasterSegmentName, "dest-name", "", "destination parent segment display name")
	cmd.Flags().StringVar(&req.APIKeyOutput, "dest-key", "", "destination API key")
	cmd.Flags().BoolVar(&noAssets, "skip-assets", false, "skip copying folders, journeys and segments")
	cmd.Flags().BoolVar(&req.CopyDataAssets, "copy-data", false, "also copy the referenced databases via workflows")
	return cmd
}
