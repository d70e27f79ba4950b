package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github/passlet/go-wallet/internal/config"
	"github/passlet/go-wallet/internal/metrics"
	"github/passlet/go-wallet/internal/wallet/connector"
	"github/passlet/go-wallet/internal/wallet/provider"
)

// Router keeps the route groups of the service. Routes are attached by
// router.Init.
type Router struct {
	Routes      []*echo.Route
	Root        *echo.Group
	Management  *echo.Group
	APIV1Wallet *echo.Group
}

// Server is the central struct keeping all the dependencies of the HTTP
// surface. Echo and Router are initialized with the router.Init(s) function,
// everything else is wired in cmd/server.
type Server struct {
	Echo   *echo.Echo
	Router *Router

	Config    config.Server
	Connector *connector.Connector
	Provider  *provider.Provider
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
}

func NewServer(cfg config.Server) *Server {
	return &Server{
		Config: cfg,
	}
}

// Ready reports whether all components were wired.
func (s *Server) Ready() bool {
	return s.Echo != nil &&
		s.Router != nil &&
		s.Connector != nil &&
		s.Provider != nil &&
		s.Metrics != nil &&
		s.Registry != nil
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	return s.Echo.Start(s.Config.Echo.ListenAddress)
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Connector != nil {
		log.Debug().Msg("Closing connector session")
		s.Connector.Close()
	}

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	return errs
}
