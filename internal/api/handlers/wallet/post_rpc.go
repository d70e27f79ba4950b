package wallet

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/passlet/go-wallet/internal/api"
	"github/passlet/go-wallet/internal/util"
)

// RPCRequest is a single wallet JSON-RPC request. Params is the positional
// parameter array, passed through verbatim.
type RPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// RPCResponse wraps the method result.
type RPCResponse struct {
	Result any `json:"result"`
}

// PostRPCRoute dispatches wallet JSON-RPC requests (eth_sendTransaction,
// personal_sign, ...) onto the active session.
func PostRPCRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallet.POST("/rpc", postRPCHandler(s))
}

func postRPCHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body RPCRequest
		if err := util.BindAndValidate(c, &body); err != nil {
			return err
		}

		if body.Method == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "method is required")
		}

		result, err := s.Provider.Request(ctx, body.Method, body.Params)
		if err != nil {
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, &RPCResponse{Result: result})
	}
}
