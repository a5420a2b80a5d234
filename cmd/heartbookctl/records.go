package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/heartbook/heartbook/client"
	"github.com/heartbook/heartbook/internal/model"
)

func listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list KIND",
		Short: "List the records of a collection (timeline, photos, notes, promises, anniversaries, dreams)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, true, func(ctx context.Context, c *client.Client) error {
				return runList(c, args[0], asJSON, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as a JSON array")
	return cmd
}

func addCmd() *cobra.Command {
	var payload, image string
	cmd := &cobra.Command{
		Use:   "add KIND",
		Short: "Add a record; blank fields get the form defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, true, func(ctx context.Context, c *client.Client) error {
				return runAdd(ctx, c, args[0], payload, image, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&payload, "json", "j", "{}", "Record fields as a JSON object")
	cmd.Flags().StringVarP(&image, "image", "i", "", "Upload this file and attach it (timeline and photos only)")
	return cmd
}

func updateCmd() *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   "update KIND ID",
		Short: "Merge fields into an existing record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, true, func(ctx context.Context, c *client.Client) error {
				return runUpdate(ctx, c, args[0], args[1], payload, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&payload, "json", "j", "", "Fields to change as a JSON object (required)")
	_ = cmd.MarkFlagRequired("json")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KIND ID",
		Short: "Delete a record and its uploaded image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, true, func(ctx context.Context, c *client.Client) error {
				return runDelete(ctx, c, args[0], args[1], cmd.OutOrStdout())
			})
		},
	}
}

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear KIND",
		Short: "Remove every record of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear %s without --yes", args[0])
			}
			return withClient(cmd, true, func(ctx context.Context, c *client.Client) error {
				return runClear(ctx, c, args[0], cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the collection should be emptied")
	return cmd
}

func runList(c *client.Client, kindArg string, asJSON bool, out io.Writer) error {
	kind, err := client.ParseKind(kindArg)
	if err != nil {
		return err
	}
	recs := c.List(kind)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tDATE\tTITLE")
	for _, r := range recs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, recordDate(r), recordTitle(r))
	}
	return tw.Flush()
}

func runAdd(ctx context.Context, c *client.Client, kindArg, payload, imagePath string, out io.Writer) error {
	kind, err := client.ParseKind(kindArg)
	if err != nil {
		return err
	}
	obj := map[string]any{}
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return fmt.Errorf("--json must be a JSON object: %w", err)
	}
	if imagePath != "" {
		key := imageKey(kind)
		if key == "" {
			return fmt.Errorf("%s records have no image", kind)
		}
		url, err := uploadFile(ctx, c, imagePath)
		if err != nil {
			return err
		}
		obj[key] = url
	}

	fields, err := model.NewFields(kind)
	if err != nil {
		return err
	}
	b, _ := json.Marshal(obj)
	if err := json.Unmarshal(b, fields); err != nil {
		return fmt.Errorf("decode %s fields: %w", kind, err)
	}

	rec, ack, err := c.Add(ctx, fields)
	if err != nil {
		return err
	}
	if err := ack.Wait(ctx); err != nil {
		return fmt.Errorf("record %s added locally but not saved: %w", rec.ID, err)
	}
	_, _ = fmt.Fprintf(out, "added %s %s\n", kind, rec.ID)
	return nil
}

func runUpdate(ctx context.Context, c *client.Client, kindArg, id, payload string, out io.Writer) error {
	kind, err := client.ParseKind(kindArg)
	if err != nil {
		return err
	}
	patch := map[string]any{}
	if err := json.Unmarshal([]byte(payload), &patch); err != nil {
		return fmt.Errorf("--json must be a JSON object: %w", err)
	}
	_, ack, err := c.Update(ctx, kind, id, patch)
	if err != nil {
		return err
	}
	if err := ack.Wait(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "updated %s %s\n", kind, id)
	return nil
}

func runDelete(ctx context.Context, c *client.Client, kindArg, id string, out io.Writer) error {
	kind, err := client.ParseKind(kindArg)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, kind, id); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "deleted %s %s\n", kind, id)
	return nil
}

func runClear(ctx context.Context, c *client.Client, kindArg string, out io.Writer) error {
	kind, err := client.ParseKind(kindArg)
	if err != nil {
		return err
	}
	if err := c.Clear(ctx, kind); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "cleared %s\n", kind.Filename())
	return nil
}

func imageKey(kind client.Kind) string {
	switch kind {
	case client.KindTimeline:
		return "image"
	case client.KindPhoto:
		return "src"
	}
	return ""
}

// recordTitle picks the most descriptive field a record has.
func recordTitle(r client.Record) string {
	switch f := r.Fields.(type) {
	case *client.TimelineEvent:
		return f.Title
	case *client.Photo:
		if f.Caption != "" {
			return f.Caption
		}
		return f.Alt
	case *client.LoveNote:
		return f.Title
	case *client.Promise:
		return f.Title
	case *client.Anniversary:
		return f.Title
	case *client.Dream:
		return f.Title
	}
	return ""
}

func recordDate(r client.Record) string {
	switch f := r.Fields.(type) {
	case *client.TimelineEvent:
		return f.Date
	case *client.Photo:
		return f.Date
	case *client.LoveNote:
		return f.Date
	case *client.Promise:
		return f.Date
	case *client.Anniversary:
		return f.Date
	case *client.Dream:
		return f.TargetDate
	}
	return ""
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
