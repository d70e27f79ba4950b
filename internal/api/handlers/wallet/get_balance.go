package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github/passlet/go-wallet/internal/api"
	"github/passlet/go-wallet/internal/util"
	"github/passlet/go-wallet/internal/wallet/account"
)

// etherDecimals is the native token precision on all configured chains.
const etherDecimals = 18

// BalanceResponse reports the native balance of the connected account.
type BalanceResponse struct {
	Address string `json:"address"`
	ChainID int64  `json:"chainId"`
	Wei     string `json:"wei"`
	Ether   string `json:"ether"`
}

func GetBalanceRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallet.GET("/balance", getBalanceHandler(s))
}

func getBalanceHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		session, err := s.Connector.CurrentSession()
		if err != nil {
			return err
		}

		chainID := s.Connector.GetChainID(ctx)
		chain, ok := s.Config.Connector.ChainByID(chainID)
		if !ok {
			return errors.Errorf("no RPC endpoint configured for chain %d", chainID)
		}

		client, err := account.NewRPCClient([]string{chain.RPCURL})
		if err != nil {
			return err
		}
		defer client.Close()

		wei, err := client.BalanceAt(ctx, session.Account.Address)
		if err != nil {
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, &BalanceResponse{
			Address: session.Account.Address.Hex(),
			ChainID: chainID,
			Wei:     wei.String(),
			Ether:   decimal.NewFromBigInt(wei, -etherDecimals).String(),
		})
	}
}
