package transport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"notification-service/internal/modules/notifications/application/usecase"
	"notification-service/internal/modules/notifications/domain"
)

// BroadcastRequest represents the payload for pushing a message via REST API
type BroadcastRequest struct {
	Event   string         `json:"event,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// BroadcastResponse represents the response after broadcasting
type BroadcastResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Event   string `json:"event"`
}

// NewBroadcastHTTPHandler creates a REST endpoint that pushes a frame to every
// authenticated connection, across instances when the fanout bridge is up.
// Used by operational tooling for service-wide announcements.
func NewBroadcastHTTPHandler(gateway *usecase.GatewayUseCase) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req BroadcastRequest
		if err := c.Bind(&req); err != nil {
			slog.Warn("broadcast http: invalid request body", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}

		event := strings.TrimSpace(req.Event)
		if event == "" {
			event = domain.EventNotification
		}

		data := make(map[string]any, len(req.Data)+1)
		for k, v := range req.Data {
			data[k] = v
		}
		if req.Message != "" {
			data["message"] = req.Message
		}
		if len(data) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "message or data is required")
		}

		if err := gateway.BroadcastAll(c.Request().Context(), event, data); err != nil {
			slog.Error("broadcast http: push failed", slog.String("event", event), slog.Any("error", err))
			return echo.NewHTTPError(http.StatusInternalServerError, "broadcast failed")
		}

		slog.Info("broadcast http: message sent", slog.String("event", event))
		return c.JSON(http.StatusOK, BroadcastResponse{
			Success: true,
			Message: "Message broadcasted successfully",
			Event:   event,
		})
	}
}
