package util

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// BindAndValidate binds the request payload into v.
func BindAndValidate(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.Wrap(err, "failed to bind request").Error())
	}

	return nil
}

// ValidateAndReturn returns the JSON response with the given code.
func ValidateAndReturn(c echo.Context, code int, v any) error {
	return c.JSON(code, v)
}
