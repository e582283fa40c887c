// Package main starts the withdrawal API server.
package main

import (
	"github.com/rs/zerolog/log"

	"github.com/pagbem/withdraw-api/cmd/httpserver"
	"github.com/pagbem/withdraw-api/internal/metrics"
	"github.com/pagbem/withdraw-api/internal/middleware"
	"github.com/pagbem/withdraw-api/pkg/configpkg"
	"github.com/pagbem/withdraw-api/pkg/dbpkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}

	server, err := httpserver.New(db, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	metrics.StartServer(config.MetricsAddress, db.PingContext)

	logger.Info().Str("address", config.ServerAddress).Msg("withdrawal api server started")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
