package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/modelmirror/internal/server"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
	"github.com/spf13/cobra"
)

type importOptions struct {
	sourceID string
	targetID string
	exporter string
	location string
	url      string
	file     string
}

// source returns which of --location, --url and --file was given.
func (o *importOptions) source() (string, error) {
	n := 0
	kind := ""
	for k, v := range map[string]string{"location": o.location, "url": o.url, "file": o.file} {
		if v != "" {
			n++
			kind = k
		}
	}
	if n != 1 {
		return "", fmt.Errorf("exactly one of --location, --url or --file is required")
	}
	return kind, nil
}

func newImportCmd() *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an archive into a mirrored model",
		Example: `  modelmirror import --source m1 --target m2 --location exports/m1/20260102T030405Z-....tar.gz
  modelmirror import --source m1 --target m2 --url 'https://...presigned...'
  modelmirror import --source m1 --target m2 --file - < archive.tar.gz`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.sourceID == "" || opts.targetID == "" {
				return fmt.Errorf("--source and --target are required")
			}
			_, err := opts.source()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *server.App) error {
				return runImport(ctx, cmd, app, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.sourceID, "source", "", "model id on the exporting instance")
	cmd.Flags().StringVar(&opts.targetID, "target", "", "mirrored model id on this instance")
	cmd.Flags().StringVar(&opts.exporter, "exporter", "", "exporter identity (default: taken from the archive)")
	cmd.Flags().StringVar(&opts.location, "location", "", "archive key in the export bucket")
	cmd.Flags().StringVar(&opts.url, "url", "", "presigned archive URL")
	cmd.Flags().StringVar(&opts.file, "file", "", "local archive path, - for stdin")
	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, app *server.App, opts *importOptions) error {
	meta := models.ExportMetadata{
		SourceModelID:   opts.sourceID,
		MirroredModelID: opts.targetID,
		Exporter:        opts.exporter,
	}

	kind, err := opts.source()
	if err != nil {
		return err
	}

	var res *models.ImportResult
	switch kind {
	case "location":
		res, err = app.Mirror.ImportFromStore(ctx, opts.location, meta)
	case "url":
		res, err = app.Mirror.ImportFromURL(ctx, opts.url, meta)
	default:
		var r io.ReadCloser = os.Stdin
		if opts.file != "-" {
			if r, err = os.Open(opts.file); err != nil {
				return err
			}
		}
		defer r.Close()
		res, err = app.Mirror.ImportArchive(ctx, r, meta)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
