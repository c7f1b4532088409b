package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mina/internal/clock"
	"github.com/smallbiznis/mina/internal/config"
	"github.com/smallbiznis/mina/internal/logger"
	"github.com/smallbiznis/mina/internal/migration"
	"github.com/smallbiznis/mina/internal/providers"
	"github.com/smallbiznis/mina/internal/queue"
	"github.com/smallbiznis/mina/internal/worker"
	"github.com/smallbiznis/mina/internal/workitem"
	"github.com/smallbiznis/mina/pkg/db"
	"go.uber.org/fx"
)

// Worker-only deployment: drains the job queue without serving HTTP.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		workitem.Module,
		providers.Module,
		queue.Module,
		worker.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
