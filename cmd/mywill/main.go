package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/smallbiznis/mywill/internal/migration"
	"github.com/smallbiznis/mywill/internal/observability"
	"github.com/smallbiznis/mywill/internal/scheduler"
	"github.com/smallbiznis/mywill/internal/server"
	"github.com/smallbiznis/mywill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema and bootstrap data before anything serves traffic
		migration.Module,

		server.Module,

		// Housekeeping
		scheduler.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the id generator. SNOWFLAKE_NODE_ID must differ per replica.
func RegisterSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		nodeID = parsed
	}
	return snowflake.NewNode(nodeID)
}
