// Command heartbookctl manages the heartbook collections through the data
// façade: list, add, update and delete records, upload photos, back up and
// restore, and change the lock-screen passphrase.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/heartbook/heartbook/client"
	"github.com/heartbook/heartbook/internal/logger"
)

var (
	apiFlag     string
	debugFlag   bool
	timeoutFlag time.Duration
	rootCmd     = &cobra.Command{
		Use:           "heartbookctl",
		Short:         "CLI client for the heartbook server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func defaultAPI() string {
	if v := os.Getenv("HEARTBOOK_API"); v != "" {
		return v
	}
	return "http://localhost:3001"
}

// newClient builds a façade client from the persistent flags.
func newClient(cmd *cobra.Command) (*client.Client, error) {
	level := zerolog.WarnLevel
	if debugFlag {
		level = zerolog.DebugLevel
	}
	log := logger.NewWithWriter("heartbookctl", zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level)
	return client.New(apiFlag,
		client.WithLogger(log),
		client.WithDebugLogging(debugFlag),
	)
}

// withClient runs fn with a connected client and a deadline from --timeout.
func withClient(cmd *cobra.Command, load bool, fn func(ctx context.Context, c *client.Client) error) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
	defer cancel()
	if load {
		if err := c.Init(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, c)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", defaultAPI(), "Heartbook server base URL (env HEARTBOOK_API)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log every HTTP request and response")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", time.Minute, "Overall deadline for the command")

	rootCmd.AddCommand(listCmd(), addCmd(), updateCmd(), deleteCmd(), clearCmd())
	rootCmd.AddCommand(uploadCmd(), exportCmd(), importCmd(), statsCmd())
	rootCmd.AddCommand(configCmd(), passwordCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
