package httperrors

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github/passlet/go-wallet/internal/config"
	"github/passlet/go-wallet/internal/util"
	"github/passlet/go-wallet/internal/wallet/connector"
	"github/passlet/go-wallet/internal/wallet/passkey"
	"github/passlet/go-wallet/internal/wallet/provider"
)

// FromWalletError maps the wallet error taxonomy onto HTTP error payloads.
// Unclassified errors become an internal server error.
func FromWalletError(err error) *HTTPError {
	switch {
	case errors.Is(err, passkey.ErrUserRejected):
		return ErrConflictUserRejected
	case errors.Is(err, connector.ErrUnsupportedChain):
		return ErrBadRequestUnsupportedChain
	case errors.Is(err, connector.ErrNotConnected):
		return ErrUnauthorizedNotConnected
	case errors.Is(err, connector.ErrNoStoredCredential):
		return ErrNotFoundNoStoredCredential
	case errors.Is(err, connector.ErrTimeout):
		return ErrGatewayTimeout
	case errors.Is(err, connector.ErrBuildFailed):
		return ErrBadGatewayBuildFailed
	case errors.Is(err, provider.ErrMethodNotSupported):
		return ErrBadRequestMethodNotSupported
	default:
		return NewHTTPError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", http.StatusText(http.StatusInternalServerError))
	}
}

// HandlerWithConfig returns the central echo error handler of the service.
func HandlerWithConfig(cfg config.EchoServer) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		log := util.LogFromContext(c.Request().Context())

		var payload *HTTPError

		switch e := err.(type) { //nolint:errorlint
		case *HTTPError:
			payload = e
		case *echo.HTTPError:
			payload = NewHTTPError(e.Code, "GENERIC", http.StatusText(e.Code))
			if msg, ok := e.Message.(string); ok {
				payload.Detail = msg
			}
		default:
			payload = FromWalletError(err)
			payload = &HTTPError{
				Code:     payload.Code,
				Type:     payload.Type,
				Title:    payload.Title,
				Internal: err,
			}
			if !cfg.HideInternalServerErrorDetails {
				payload.Detail = err.Error()
			}
		}

		log.Debug().Err(err).Int("status", payload.Code).Str("type", payload.Type).Msg("Handling error")

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(payload.Code)
		} else {
			err = c.JSON(payload.Code, payload)
		}

		if err != nil {
			log.Warn().Err(err).Msg("Failed to write error response")
		}
	}
}
