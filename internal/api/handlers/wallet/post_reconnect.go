package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/passlet/go-wallet/internal/api"
	"github/passlet/go-wallet/internal/util"
)

// PostReconnectRoute restores the session from the stored credential without
// any user interaction. 404 when nothing is stored.
func PostReconnectRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallet.POST("/reconnect", postReconnectHandler(s))
}

func postReconnectHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		result, err := s.Connector.Reconnect(ctx)
		if err != nil {
			return err
		}

		response := &ConnectResponse{
			Accounts: make([]string, 0, len(result.Accounts)),
			ChainID:  result.ChainID,
		}
		for _, address := range result.Accounts {
			response.Accounts = append(response.Accounts, address.Hex())
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
