package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mina/internal/account"
	"github.com/smallbiznis/mina/internal/clock"
	"github.com/smallbiznis/mina/internal/config"
	"github.com/smallbiznis/mina/internal/dedupe"
	"github.com/smallbiznis/mina/internal/logger"
	"github.com/smallbiznis/mina/internal/migration"
	"github.com/smallbiznis/mina/internal/payment"
	"github.com/smallbiznis/mina/internal/providers"
	"github.com/smallbiznis/mina/internal/queue"
	"github.com/smallbiznis/mina/internal/reservation"
	"github.com/smallbiznis/mina/internal/server"
	"github.com/smallbiznis/mina/internal/workitem"
	"github.com/smallbiznis/mina/pkg/db"
	"go.uber.org/fx"
)

// API-only deployment: accepts webhooks and enqueues work, leaving the queue
// drain to the worker binary.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		account.Module,
		workitem.Module,
		dedupe.Module,
		reservation.Module,
		payment.Module,
		providers.Module,
		queue.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(3)
	if err != nil {
		panic(err)
	}
	return node
}
