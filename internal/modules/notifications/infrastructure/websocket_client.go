package infrastructure

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"notification-service/internal/modules/notifications/domain"
)

type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	connectionID string
	userID       string
	userMu       sync.RWMutex
	commands     *CommandProcessor
	sendMu       sync.Mutex
	sendClosed   bool
	closeOnce    sync.Once
	closeHooks   []func(*Client)
	hookMu       sync.Mutex
}

// NewClient crea un cliente WebSocket identificado por connectionID con buffer configurable.
func NewClient(hub *Hub, conn *websocket.Conn, connectionID string, buf int, fallback CommandHandler) *Client {
	client := &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, buf),
		connectionID: connectionID,
	}
	client.commands = NewCommandProcessor(hub, fallback)
	return client
}

func (c *Client) ConnectionID() string {
	return c.connectionID
}

// UserID returns the bound user, or "" while the connection is anonymous.
func (c *Client) UserID() string {
	c.userMu.RLock()
	defer c.userMu.RUnlock()
	return c.userID
}

func (c *Client) setUser(userID string) {
	c.userMu.Lock()
	c.userID = userID
	c.userMu.Unlock()
}

// Commands exposes the processor so the transport layer can register
// protocol handlers before the pumps start.
func (c *Client) Commands() *CommandProcessor {
	return c.commands
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.sendClosed = true
		close(c.send)
		c.sendMu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.invokeCloseHooks()
	})
}

// AddCloseHook registers a callback that will be executed once when the client closes.
func (c *Client) AddCloseHook(fn func(*Client)) {
	if fn == nil {
		return
	}
	c.hookMu.Lock()
	c.closeHooks = append(c.closeHooks, fn)
	c.hookMu.Unlock()
}

func (c *Client) invokeCloseHooks() {
	c.hookMu.Lock()
	hooks := append([]func(*Client){}, c.closeHooks...)
	c.closeHooks = nil
	c.hookMu.Unlock()

	for _, hook := range hooks {
		func(h func(*Client)) {
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("ws close hook panic", slog.Any("error", r))
				}
			}()
			h(c)
		}(hook)
	}
}

// SendRaw enqueues pre-encoded frame bytes, detaching the client when its
// buffer is full instead of blocking the caller. Sends racing a close are
// dropped; the channel must never see a send after it is closed.
func (c *Client) SendRaw(data []byte) {
	c.sendMu.Lock()
	if c.sendClosed {
		c.sendMu.Unlock()
		return
	}
	select {
	case c.send <- data:
		c.sendMu.Unlock()
	default:
		c.sendMu.Unlock()
		slog.Warn("websocket send buffer full", slog.String("connectionId", c.connectionID), slog.String("userId", c.UserID()))
		go c.hub.detachClient(c)
	}
}

// SendEvent encodes a protocol frame and enqueues it.
func (c *Client) SendEvent(event string, data any) {
	payload, err := domain.EncodeFrame(event, data)
	if err != nil {
		slog.Error("websocket marshal error", slog.String("event", event), slog.Any("error", err))
		return
	}
	c.SendRaw(payload)
}

func (c *Client) WritePump() {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("websocket write error", slog.Any("error", err))
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				slog.Warn("websocket ping error", slog.Any("error", err))
				return
			}
		}
	}
}

func (c *Client) ReadPump() {
	c.conn.SetReadLimit(1 << 16)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	defer c.hub.detachClient(c)
	for {
		var frame domain.Frame
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if err := c.conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read error", slog.String("connectionId", c.connectionID), slog.String("userId", c.UserID()), slog.Any("error", err))
			}
			return
		}
		c.processFrame(frame)
	}
}

func (c *Client) processFrame(frame domain.Frame) {
	if c.commands == nil {
		return
	}
	c.commands.Process(c, frame)
}
