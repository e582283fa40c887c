// Package main starts the scheduled-withdrawal dispatch worker.
//
// By default it runs the perpetual dispatch service; with -once it runs a
// single pass, prints the processed count and exits. Several worker
// instances may run against the same database.
package main

import (
	"context"
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/pagbem/withdraw-api/internal/dispatcher"
	"github.com/pagbem/withdraw-api/internal/metrics"
	"github.com/pagbem/withdraw-api/internal/middleware"
	"github.com/pagbem/withdraw-api/internal/notifier"
	"github.com/pagbem/withdraw-api/internal/payoutrepo"
	"github.com/pagbem/withdraw-api/internal/withdrawalrepo"
	"github.com/pagbem/withdraw-api/internal/withdrawalservice"
	"github.com/pagbem/withdraw-api/pkg/configpkg"
	"github.com/pagbem/withdraw-api/pkg/dbpkg"

	_ "github.com/lib/pq"
)

func main() {
	once := flag.Bool("once", false, "run a single dispatch pass and exit")
	flag.Parse()

	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}

	withdrawalRepo := withdrawalrepo.NewRepoPGS(db)
	payoutRepo := payoutrepo.NewRepoPGS(db)

	emailNotifier := notifier.NewEmail(withdrawalRepo, payoutRepo, config.MailHost, config.MailPort, config.MailFrom)
	withdrawalService := withdrawalservice.New(withdrawalRepo, emailNotifier)

	d := dispatcher.New(withdrawalService, config.DispatcherInterval)

	ctx := logger.WithContext(context.Background())

	if *once {
		processed, err := d.RunOnce(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("dispatch pass failed")
		}

		logger.Info().Int("processed", processed).Msg("dispatch pass finished")

		return
	}

	metrics.StartServer(config.MetricsAddress, db.PingContext)

	d.Run(ctx)
}
