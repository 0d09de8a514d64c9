package main

import (
	"context"

	"github.com/dmitrijs2005/modelmirror/internal/server"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *server.App) error {
				return app.Migrate(ctx)
			})
		},
	}
}
