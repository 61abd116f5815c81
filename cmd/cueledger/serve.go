package main

import (
	"github.com/smallbiznis/cueledger/internal/migration"
	"github.com/smallbiznis/cueledger/internal/scheduler"
	"github.com/smallbiznis/cueledger/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Apply migrations, then serve the HTTP API and run the scheduler.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			coreModules(),
			migration.Module,
			domainModules(),
			scheduler.Module,
			scheduler.Background,
			server.Module,
		)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}
