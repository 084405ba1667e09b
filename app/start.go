package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GoLoginSystem/GoLoginSystem/internal/daemon"
	"github.com/GoLoginSystem/GoLoginSystem/internal/logger"
)

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the login web service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err = logger.Init(cfg.Log); err != nil {
			return err //nolint:wrapcheck
		}

		if cfg.DevMode {
			log.Warn().Msg("dev mode enabled")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		d, err := daemon.New(ctx, &cfg)
		if err != nil {
			log.Error().Err(err).Msg("failed to start")

			return err //nolint:wrapcheck
		}

		return d.Start() //nolint:wrapcheck
	},
}
