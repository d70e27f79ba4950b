package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/passlet/go-wallet/internal/api"
)

// GetHealthyRoute answers liveness probes. It returns 200 as long as the
// process serves requests, independent of downstream availability.
func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

func getHealthyHandler(_ *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, "OK.")
	}
}
