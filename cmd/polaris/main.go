package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/polarishq/polaris/internal/migration"
	"github.com/polarishq/polaris/internal/observability"
	"github.com/polarishq/polaris/internal/server"
	"github.com/polarishq/polaris/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(registerSnowflake),
		observability.Module,
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
