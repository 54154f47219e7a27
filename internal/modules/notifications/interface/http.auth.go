package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"notification-service/internal/shared/auth"
	"notification-service/internal/shared/httputil"
)

var authErrors = httputil.NewErrorMapper().
	WithMapping(auth.ErrMissingToken, http.StatusUnauthorized, "missing token").
	WithMapping(auth.ErrInvalidToken, http.StatusUnauthorized, "invalid token")

// RequireToken guards the operational endpoints with the same tokens the
// websocket authenticate event accepts.
func RequireToken(validator auth.TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := validator.Validate(auth.ExtractBearerToken(c.Request())); err != nil {
				info := authErrors.Map(err)
				return echo.NewHTTPError(info.Status, info.Message)
			}
			return next(c)
		}
	}
}
