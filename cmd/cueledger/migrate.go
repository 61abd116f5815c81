package main

import (
	"context"

	"github.com/smallbiznis/cueledger/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			coreModules(),
			migration.Module,
			fx.NopLogger,
		)
		if err := app.Err(); err != nil {
			return err
		}
		if err := app.Start(cmd.Context()); err != nil {
			return err
		}
		return app.Stop(context.Background())
	},
}
