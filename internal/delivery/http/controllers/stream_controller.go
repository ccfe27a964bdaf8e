package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/domain"
	"guestlist/internal/metrics"
)

const (
	streamWriteWait    = 10 * time.Second
	streamPingInterval = 30 * time.Second
	streamReadLimit    = 512
)

// StreamController pushes change notifications for one event over a WebSocket.
// Clients re-fetch the event when a notification arrives.
type StreamController struct {
	Logger       *slog.Logger
	Service      domain.EventService
	Feed         domain.ChangeFeed
	Metrics      *metrics.Metrics
	Upgrader     websocket.Upgrader
	PingInterval time.Duration
}

// NewStreamController builds the stream endpoint. allowedOrigins are checked
// against the Origin header; requests without one (non-browser clients) pass.
func NewStreamController(logger *slog.Logger, svc domain.EventService, feed domain.ChangeFeed, m *metrics.Metrics, allowedOrigins []string) *StreamController {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &StreamController{
		Logger:  logger,
		Service: svc,
		Feed:    feed,
		Metrics: m,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		PingInterval: streamPingInterval,
	}
}

// StreamChanges godoc
// @Summary Stream event changes
// @Description Upgrades to a WebSocket and sends a JSON Change for every write to the event. Pass the token as access_token when the client cannot set headers.
// @Tags events
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 101 "Switching Protocols"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/changes [get]
func (c *StreamController) StreamChanges(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), r.PathValue("eventID"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if !canManage(session.User, event) {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
		return
	}

	// Subscribe before upgrading so a failure can still be reported as JSON.
	sub, err := c.Feed.Subscribe(r.Context(), domain.EventTopic(event.ID))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	defer sub.Unsubscribe()

	conn, err := c.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		c.Logger.DebugContext(r.Context(), "websocket upgrade failed", "event_id", event.ID, "err", err)
		return
	}
	defer conn.Close()
	defer c.Metrics.StreamOpened()()

	c.Logger.InfoContext(r.Context(), "change stream opened", "event_id", event.ID, "user_id", session.User.ID)
	err = c.pump(r.Context(), conn, sub)
	c.Logger.InfoContext(r.Context(), "change stream closed", "event_id", event.ID, "user_id", session.User.ID, "reason", err)
}

// pump forwards changes until the client goes away, the subscription ends or ctx is done.
func (c *StreamController) pump(ctx context.Context, conn *websocket.Conn, sub domain.Subscription) error {
	interval := c.PingInterval
	if interval <= 0 {
		interval = streamPingInterval
	}
	clientGone := make(chan error, 1)
	go func() {
		clientGone <- readUntilClosed(conn, interval)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-clientGone:
			return err
		case change, ok := <-sub.C():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(streamWriteWait))
				return errors.New("subscription closed")
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(change); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return err
			}
		}
	}
}

// readUntilClosed discards client frames and returns when the connection fails
// or the client stops answering pings.
func readUntilClosed(conn *websocket.Conn, pingInterval time.Duration) error {
	pongWait := 2 * pingInterval
	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return err
		}
	}
}
