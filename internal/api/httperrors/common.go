// Package httperrors defines the JSON error payload of the API and the
// mapping from wallet errors to HTTP statuses.
package httperrors

import (
	"fmt"
	"net/http"
)

// HTTPError is the JSON error payload returned by all handlers.
type HTTPError struct {
	Code   int    `json:"status"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`

	Internal error `json:"-"`
}

func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{
		Code:  code,
		Type:  errorType,
		Title: title,
	}
}

func NewHTTPErrorWithDetail(code int, errorType string, title string, detail string) *HTTPError {
	return &HTTPError{
		Code:   code,
		Type:   errorType,
		Title:  title,
		Detail: detail,
	}
}

func (e *HTTPError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("HTTPError %d (%s): %s, %v", e.Code, e.Type, e.Title, e.Internal)
	}

	return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
}

var (
	ErrConflictUserRejected         = NewHTTPError(http.StatusConflict, "USER_REJECTED", "The request was dismissed.")
	ErrBadRequestUnsupportedChain   = NewHTTPError(http.StatusBadRequest, "UNSUPPORTED_CHAIN", "The requested chain is not configured.")
	ErrUnauthorizedNotConnected     = NewHTTPError(http.StatusUnauthorized, "NOT_CONNECTED", "The wallet is not connected.")
	ErrNotFoundNoStoredCredential   = NewHTTPError(http.StatusNotFound, "NO_STORED_CREDENTIAL", "No passkey credential is stored for this project.")
	ErrGatewayTimeout               = NewHTTPError(http.StatusGatewayTimeout, "TIMEOUT", "The operation did not complete in time.")
	ErrBadGatewayBuildFailed        = NewHTTPError(http.StatusBadGateway, "ACCOUNT_UNAVAILABLE", "The smart account could not be prepared.")
	ErrBadRequestMethodNotSupported = NewHTTPError(http.StatusBadRequest, "METHOD_NOT_SUPPORTED", "The RPC method is not supported.")
)
