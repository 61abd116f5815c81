package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/cashback"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/config"
	"github.com/smallbiznis/cueledger/internal/customer"
	"github.com/smallbiznis/cueledger/internal/events"
	"github.com/smallbiznis/cueledger/internal/observability"
	"github.com/smallbiznis/cueledger/internal/order"
	"github.com/smallbiznis/cueledger/internal/payment"
	"github.com/smallbiznis/cueledger/internal/ratelimit"
	"github.com/smallbiznis/cueledger/internal/receipt"
	"github.com/smallbiznis/cueledger/internal/report"
	"github.com/smallbiznis/cueledger/internal/session"
	"github.com/smallbiznis/cueledger/internal/table"
	"github.com/smallbiznis/cueledger/pkg/db"
	"go.uber.org/fx"
)

func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
	)
}

func domainModules() fx.Option {
	return fx.Options(
		ratelimit.Module,
		events.Module,
		table.Module,
		customer.Module,
		order.Module,
		cashback.Module,
		payment.Module,
		session.Module,
		report.Module,
		receipt.Module,
	)
}

// RegisterSnowflake builds the id generator. Every instance sharing a
// database needs its own SNOWFLAKE_NODE.
func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.SnowflakeNode, err)
	}
	return node, nil
}
