package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"github.com/smallbiznis/tilegrid/internal/config"
	"github.com/smallbiznis/tilegrid/internal/migration"
	"github.com/smallbiznis/tilegrid/internal/observability"
	"github.com/smallbiznis/tilegrid/internal/server"
	"github.com/smallbiznis/tilegrid/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

// RegisterSnowflake gives every replica its own id node via SNOWFLAKE_NODE_ID.
func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
