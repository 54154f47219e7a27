package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"notification-service/internal/modules/notifications/application/usecase"
	"notification-service/internal/modules/notifications/domain"
	"notification-service/internal/modules/notifications/infrastructure"
	"notification-service/internal/shared/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type authenticatePayload struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type authenticatedPayload struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// NewNotificationsWSHandler expone /ws/notifications. La conexion se acepta
// de forma anonima y se vincula al usuario con el evento authenticate (token
// JWT, o userId directo para clientes legados); un token valido en el query
// string autentica de inmediato.
func NewNotificationsWSHandler(
	hub *infrastructure.Hub,
	gateway *usecase.GatewayUseCase,
	validator auth.TokenValidator,
	sendBuffer int,
) echo.HandlerFunc {
	if sendBuffer <= 0 {
		sendBuffer = 8
	}

	return func(c echo.Context) error {
		preToken := strings.TrimSpace(auth.ExtractToken(c.Request(), "token"))

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("ws upgrade failed", slog.String("ip", c.RealIP()), slog.Any("error", err))
			return err
		}

		connectionID := uuid.NewString()
		client := infrastructure.NewClient(hub, conn, connectionID, sendBuffer, nil)

		client.Commands().Register(domain.EventAuthenticate, func(ctx context.Context, cl *infrastructure.Client, frame domain.Frame) {
			var payload authenticatePayload
			if len(frame.Data) > 0 {
				if err := json.Unmarshal(frame.Data, &payload); err != nil {
					slog.Warn("ws authenticate payload decode error", slog.String("connectionId", cl.ConnectionID()), slog.Any("error", err))
				}
			}
			if payload.Token != "" {
				authenticateClient(ctx, hub, gateway, validator, cl, payload.Token)
				return
			}
			bindUser(ctx, hub, gateway, cl, payload.UserID)
		})

		client.AddCloseHook(func(cl *infrastructure.Client) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := gateway.UnregisterConnection(ctx, cl.ConnectionID()); err != nil {
				slog.Warn("ws unregister failed", slog.String("connectionId", cl.ConnectionID()), slog.Any("error", err))
			}
		})

		hub.AttachClient(client)
		go client.WritePump()
		go client.ReadPump()

		if preToken != "" {
			authenticateClient(c.Request().Context(), hub, gateway, validator, client, preToken)
		}
		return nil
	}
}

// authenticateClient validates the token, binds the connection to its user
// and records it in the presence registry. Invalid credentials answer with an
// error frame and leave the connection anonymous.
func authenticateClient(
	ctx context.Context,
	hub *infrastructure.Hub,
	gateway *usecase.GatewayUseCase,
	validator auth.TokenValidator,
	client *infrastructure.Client,
	token string,
) {
	claims, err := validator.Validate(token)
	if err != nil {
		slog.Warn("ws authenticate rejected", slog.String("connectionId", client.ConnectionID()), slog.Any("error", err))
		client.SendEvent(domain.EventError, map[string]string{"message": "authentication failed"})
		return
	}

	bindUser(ctx, hub, gateway, client, claims.Subject)
}

// bindUser attaches the connection to the user in both the hub index and the
// presence registry, then confirms with the authenticated event.
func bindUser(
	ctx context.Context,
	hub *infrastructure.Hub,
	gateway *usecase.GatewayUseCase,
	client *infrastructure.Client,
	userID string,
) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		client.SendEvent(domain.EventError, map[string]string{"message": "authentication failed"})
		return
	}
	if err := gateway.RegisterConnection(ctx, userID, client.ConnectionID()); err != nil {
		slog.Error("ws presence register failed", slog.String("connectionId", client.ConnectionID()), slog.String("userId", userID), slog.Any("error", err))
		client.SendEvent(domain.EventError, map[string]string{"message": "authentication failed"})
		return
	}
	hub.BindUser(client, userID)
	client.SendEvent(domain.EventAuthenticated, authenticatedPayload{UserID: userID, ConnectionID: client.ConnectionID()})
}
