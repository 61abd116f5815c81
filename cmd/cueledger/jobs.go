package main

import (
	"context"
	"errors"

	"github.com/smallbiznis/cueledger/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var expireCashbackCmd = &cobra.Command{
	Use:   "expire-cashback",
	Short: "Expire cashback entries past their validity for every account.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd.Context(), scheduler.JobExpireCashback)
	},
}

var relayOutboxCmd = &cobra.Command{
	Use:   "relay-outbox",
	Short: "Publish pending outbox events to the broker until the backlog is empty.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd.Context(), scheduler.JobOutboxRelay)
	},
}

// runJob boots the domain graph without the HTTP server or the run loop and
// executes one scheduler job.
func runJob(ctx context.Context, name string) (err error) {
	var sched *scheduler.Scheduler
	app := fx.New(
		coreModules(),
		domainModules(),
		scheduler.Module,
		fx.Populate(&sched),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, app.Stop(context.Background()))
	}()

	return sched.RunJob(ctx, name)
}
