package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/modelmirror/internal/server"
	"github.com/dmitrijs2005/modelmirror/internal/server/config"
	"github.com/spf13/cobra"
)

// newApp is a seam for tests.
var newApp = func(ctx context.Context) (*server.App, error) {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return nil, err
	}
	return server.NewApp(ctx, cfg)
}

// Connection settings (-d, -e, -r, ... or -c file.json) are read by
// config.LoadConfig, so cobra is told to let unknown flags through.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modelmirror",
		Short: "Mirror models between instances",
		Long: "modelmirror exports a model with selected releases into an archive in the export bucket, " +
			"and imports such an archive into a mirrored model on another instance.\n\n" +
			"Store and database settings are given with the short config flags (-d, -o, -e, -b, -x, -r, ...) " +
			"or a JSON file passed with -c.",
		SilenceUsage:       true,
		SilenceErrors:      true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	}

	for _, c := range []*cobra.Command{newMigrateCmd(), newExportCmd(), newImportCmd()} {
		c.FParseErrWhitelist = cobra.FParseErrWhitelist{UnknownFlags: true}
		c.Args = cobra.ArbitraryArgs
		root.AddCommand(c)
	}
	return root
}

// withApp builds the application, runs fn under a signal-aware context and
// closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *server.App) error) error {
	app, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.WithSignals(cmd.Context())
	defer cancel()
	return fn(ctx, app)
}
