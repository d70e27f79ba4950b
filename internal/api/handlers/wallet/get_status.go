package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/passlet/go-wallet/internal/api"
	"github/passlet/go-wallet/internal/util"
)

// StatusResponse reports the connector identity and session state.
type StatusResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Connected  bool     `json:"connected"`
	Authorized bool     `json:"authorized"`
	Accounts   []string `json:"accounts"`
	ChainID    int64    `json:"chainId"`
}

func GetStatusRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallet.GET("/status", getStatusHandler(s))
}

func getStatusHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		descriptor := s.Connector.Descriptor()
		accounts := s.Connector.GetAccounts(ctx)

		response := &StatusResponse{
			ID:         descriptor.ID,
			Name:       descriptor.Name,
			Type:       descriptor.Type,
			Connected:  len(accounts) > 0,
			Authorized: s.Connector.IsAuthorized(ctx),
			Accounts:   make([]string, 0, len(accounts)),
			ChainID:    s.Connector.GetChainID(ctx),
		}
		for _, address := range accounts {
			response.Accounts = append(response.Accounts, address.Hex())
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
