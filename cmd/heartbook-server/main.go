package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/heartbook/heartbook/heartbookservice"
	"github.com/heartbook/heartbook/internal/config"
	"github.com/heartbook/heartbook/internal/logger"
	"github.com/heartbook/heartbook/internal/settings"
)

var rootCmd = &cobra.Command{
	Use:   "heartbook-server",
	Short: "Serve the heartbook collections, uploads and lock-screen config",
	RunE: func(cmd *cobra.Command, args []string) error {
		return heartbookservice.Run()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP server (default)",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return heartbookservice.Run()
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "set-password PASSWORD",
		Short: "Replace the lock-screen passphrase in the data directory without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			store := settings.New(cfg.DataDir, logger.New("heartbook-server"))
			if err := store.UpdatePassword(context.Background(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "passphrase updated in %s\n", store.Path())
			return nil
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("heartbook-server exited with error")
		os.Exit(1)
	}
}
