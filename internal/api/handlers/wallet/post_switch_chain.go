package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/passlet/go-wallet/internal/api"
	"github/passlet/go-wallet/internal/util"
)

// SwitchChainRequest selects the chain to move the session to.
type SwitchChainRequest struct {
	ChainID int64 `json:"chainId"`
}

// SwitchChainResponse describes the chain after a successful switch.
type SwitchChainResponse struct {
	ChainID int64  `json:"chainId"`
	Name    string `json:"name"`
}

func PostSwitchChainRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallet.POST("/switch-chain", postSwitchChainHandler(s))
}

func postSwitchChainHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body SwitchChainRequest
		if err := util.BindAndValidate(c, &body); err != nil {
			return err
		}

		if body.ChainID == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "chainId is required")
		}

		chain, err := s.Connector.SwitchChain(ctx, body.ChainID)
		if err != nil {
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, &SwitchChainResponse{
			ChainID: chain.ChainID,
			Name:    chain.Name,
		})
	}
}
