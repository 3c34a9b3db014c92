package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/uplinehq/upline/internal/clock"
	"github.com/uplinehq/upline/internal/config"
	"github.com/uplinehq/upline/internal/migration"
	"github.com/uplinehq/upline/internal/observability"
	"github.com/uplinehq/upline/internal/ratelimit"
	"github.com/uplinehq/upline/internal/server"
	"github.com/uplinehq/upline/pkg/db"
	"github.com/uplinehq/upline/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		telemetry.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,
		ratelimit.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
