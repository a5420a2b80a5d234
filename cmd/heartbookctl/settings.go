package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/heartbook/heartbook/client"
)

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the lock-screen configuration (defaults when unavailable)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, false, func(ctx context.Context, c *client.Client) error {
				return runConfig(ctx, c, cmd.OutOrStdout())
			})
		},
	}
}

func passwordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "password NEW",
		Short: "Change the lock-screen passphrase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, false, func(ctx context.Context, c *client.Client) error {
				if err := c.UpdatePassword(ctx, args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "passphrase updated")
				return nil
			})
		},
	}
}

func runConfig(ctx context.Context, c *client.Client, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(c.LoadConfig(ctx))
}
