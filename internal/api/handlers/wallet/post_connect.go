// Package wallet exposes the passkey wallet connector over HTTP for the
// demo SPA host.
package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/passlet/go-wallet/internal/api"
	"github/passlet/go-wallet/internal/util"
)

// ConnectRequest optionally pins the chain to connect on. Without a chain id
// the first configured chain is used.
type ConnectRequest struct {
	ChainID *int64 `json:"chainId,omitempty"`
}

// ConnectResponse is returned by connect, reconnect and status.
type ConnectResponse struct {
	Accounts []string `json:"accounts"`
	ChainID  int64    `json:"chainId"`
}

func PostConnectRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallet.POST("/connect", postConnectHandler(s))
}

func postConnectHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body ConnectRequest
		if err := util.BindAndValidate(c, &body); err != nil {
			return err
		}

		result, err := s.Connector.Connect(ctx, body.ChainID)
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
