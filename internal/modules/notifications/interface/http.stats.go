package transport

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"notification-service/internal/modules/notifications/application/usecase"
)

// NewStatsHTTPHandler reports how many distinct users are currently online.
func NewStatsHTTPHandler(gateway *usecase.GatewayUseCase) echo.HandlerFunc {
	return func(c echo.Context) error {
		stats, err := gateway.Stats(c.Request().Context())
		if err != nil {
			slog.Error("stats http: query failed", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusInternalServerError, "stats unavailable")
		}
		return c.JSON(http.StatusOK, stats)
	}
}
