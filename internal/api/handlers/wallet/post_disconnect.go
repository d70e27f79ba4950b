package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/passlet/go-wallet/internal/api"
)

// PostDisconnectRoute terminates the session and deletes the stored
// credential reference.
func PostDisconnectRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallet.POST("/disconnect", postDisconnectHandler(s))
}

func postDisconnectHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		if err := s.Connector.Disconnect(ctx); err != nil {
			return err
		}

		return c.NoContent(http.StatusNoContent)
	}
}
