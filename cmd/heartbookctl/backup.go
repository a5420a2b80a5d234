package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heartbook/heartbook/client"
)

func uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload an image and print its public path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, false, func(ctx context.Context, c *client.Client) error {
				url, err := uploadFile(ctx, c, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
}

func exportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every collection to one JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, true, func(ctx context.Context, c *client.Client) error {
				if outPath == "" {
					return runExport(c, cmd.OutOrStdout())
				}
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				if err := runExport(c, f); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "backup written to %s\n", outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Backup file (default stdout; suggested name "+backupName(time.Now())+")")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the collections present in a JSON backup ('-' reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = in.Close() }()
			return withClient(cmd, true, func(ctx context.Context, c *client.Client) error {
				return runImport(ctx, c, in, cmd.OutOrStdout())
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record counts and stored size per collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, true, func(ctx context.Context, c *client.Client) error {
				return runStats(c, cmd.OutOrStdout())
			})
		},
	}
}

func backupName(t time.Time) string {
	return fmt.Sprintf("my-life-data-%s.json", t.Format("2006-01-02"))
}

func uploadFile(ctx context.Context, c *client.Client, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	ct, err := detectContentType(f, path)
	if err != nil {
		return "", err
	}
	return c.UploadPhoto(ctx, filepath.Base(path), ct, f)
}

// detectContentType prefers the file extension and falls back to sniffing.
// The reader is rewound afterwards.
func detectContentType(f *os.File, path string) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func runExport(c *client.Client, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Snapshot())
}

func runImport(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	var snap client.Snapshot
	if err := json.NewDecoder(in).Decode(&snap); err != nil {
		return fmt.Errorf("invalid backup file: %w", err)
	}
	if err := c.Import(ctx, snap); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, "backup imported")
	return nil
}

func runStats(c *client.Client, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "COLLECTION\tRECORDS\tSIZE")
	total := 0
	for _, s := range c.Stats() {
		total += s.Bytes
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Filename, s.Records, humanize.Bytes(uint64(s.Bytes)))
	}
	_, _ = fmt.Fprintf(tw, "total\t\t%s\n", humanize.Bytes(uint64(total)))
	return tw.Flush()
}
