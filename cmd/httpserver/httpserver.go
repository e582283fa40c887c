// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pagbem/withdraw-api/internal/middleware"
	"github.com/pagbem/withdraw-api/internal/notifier"
	"github.com/pagbem/withdraw-api/internal/payoutrepo"
	"github.com/pagbem/withdraw-api/internal/withdrawaldelivery"
	"github.com/pagbem/withdraw-api/internal/withdrawalrepo"
	"github.com/pagbem/withdraw-api/internal/withdrawalservice"
	"github.com/pagbem/withdraw-api/pkg/configpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB      *sql.DB
	Engine  *gin.Engine
	Config  configpkg.Config
	Service *withdrawalservice.Service
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	withdrawalRepo := withdrawalrepo.NewRepoPGS(conn)
	payoutRepo := payoutrepo.NewRepoPGS(conn)

	emailNotifier := notifier.NewEmail(withdrawalRepo, payoutRepo, config.MailHost, config.MailPort, config.MailFrom)

	withdrawalService := withdrawalservice.New(withdrawalRepo, emailNotifier)
	withdrawalHandler := withdrawaldelivery.NewHandler(withdrawalService)

	engine := gin.New()
	engine.Use(middleware.RequestLogger(logger), gin.Recovery())

	engine.POST("/accounts/:account_id/balance/withdraw", withdrawalHandler.Withdraw)

	server := &Server{
		DB:      conn,
		Engine:  engine,
		Config:  config,
		Service: withdrawalService,
	}

	return server, nil
}
