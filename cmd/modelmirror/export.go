package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/modelmirror/internal/server"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	modelID  string
	releases []string
	agree    bool
	exporter string
	shareTTL time.Duration
}

func newExportCmd() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a model into the export bucket",
		Example: `  modelmirror export --model m1 --release 1.0.0 --release 1.1.0 --agree-disclaimer
  modelmirror export --model m1 --release 1.0.0 --agree-disclaimer --share-ttl 24h -c prod.json`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.modelID == "" {
				return fmt.Errorf("--model is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *server.App) error {
				return runExport(ctx, cmd, app, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.modelID, "model", "", "model to export")
	cmd.Flags().StringArrayVar(&opts.releases, "release", nil, "release semver to include (repeatable)")
	cmd.Flags().BoolVar(&opts.agree, "agree-disclaimer", false, "confirm the export disclaimer")
	cmd.Flags().StringVar(&opts.exporter, "exporter", "", "identity recorded as exporter (default: instance id)")
	cmd.Flags().DurationVar(&opts.shareTTL, "share-ttl", 0, "also print a presigned download URL valid for this long")
	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, app *server.App, opts *exportOptions) error {
	key, err := app.Mirror.ExportModel(ctx, opts.exporter, opts.modelID, opts.releases, opts.agree)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), key)

	if opts.shareTTL > 0 {
		url, err := app.Mirror.ShareExport(ctx, key, opts.shareTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
	}
	return nil
}
