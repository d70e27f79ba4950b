// Package router attaches middleware and all route groups to the server.
package router

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github/passlet/go-wallet/internal/api"
	"github/passlet/go-wallet/internal/api/handlers/common"
	"github/passlet/go-wallet/internal/api/handlers/wallet"
	"github/passlet/go-wallet/internal/api/httperrors"
)

func Init(s *api.Server) {
	s.Echo = echo.New()

	s.Echo.Debug = false
	s.Echo.HideBanner = true
	s.Echo.HTTPErrorHandler = httperrors.HandlerWithConfig(s.Config.Echo)

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestID())

	s.Router = &api.Router{
		Root:        s.Echo.Group(""),
		Management:  s.Echo.Group("/-", managementSecretMiddleware(s)),
		APIV1Wallet: s.Echo.Group("/api/v1/wallet"),
	}

	s.Router.Management.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))

	s.Router.Routes = []*echo.Route{
		common.GetHealthyRoute(s),
		common.GetReadyRoute(s),

		wallet.PostConnectRoute(s),
		wallet.PostDisconnectRoute(s),
		wallet.PostReconnectRoute(s),
		wallet.PostSwitchChainRoute(s),
		wallet.GetStatusRoute(s),
		wallet.GetBalanceRoute(s),
		wallet.PostRPCRoute(s),
	}
}

// managementSecretMiddleware guards the management endpoints with the
// configured secret, passed as the "mgmt-secret" query parameter.
func managementSecretMiddleware(s *api.Server) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			secret := c.QueryParam("mgmt-secret")
			if subtle.ConstantTimeCompare([]byte(secret), []byte(s.Config.Management.Secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid management secret")
			}

			return next(c)
		}
	}
}
