package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/totegamma/officechat/internal/domain"
	"github.com/totegamma/officechat/internal/present/rest/middleware"
	"github.com/totegamma/officechat/internal/utils"
)

const (
	// a dm_send carrying a clientId already seen in this window is dropped
	sendDedupeWindow = 5 * time.Minute
	outboundBuffer   = 64
	writeWait        = 10 * time.Second
)

var (
	errConnClosed = errors.New("connection closed")
	errConnFull   = errors.New("connection outbound queue full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type     string `json:"type"`
	ToID     string `json:"toId,omitempty"`
	Text     string `json:"text,omitempty"`
	ClientID string `json:"clientId,omitempty"`
	OtherID  string `json:"otherId,omitempty"`
}

// socketConn is the presence handle for one websocket. Send never blocks:
// events beyond the outbound buffer are dropped.
type socketConn struct {
	id       string
	identity string
	out      chan domain.Event
	mu       sync.Mutex
	closed   bool
}

func newSocketConn(identity string) *socketConn {
	return &socketConn{
		id:       utils.NewConnectionID(),
		identity: identity,
		out:      make(chan domain.Event, outboundBuffer),
	}
}

func (s *socketConn) ID() string       { return s.id }
func (s *socketConn) Identity() string { return s.identity }

func (s *socketConn) Send(event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errConnClosed
	}
	select {
	case s.out <- event:
		return nil
	default:
		return errConnFull
	}
}

func (s *socketConn) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()
	identity := middleware.RequesterID(ctx)

	conn := newSocketConn(identity)
	if err := h.presence.Connect(ctx, conn); err != nil {
		slog.WarnContext(
			ctx, "Rejected connection",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return nil
	}
	defer func() {
		h.presence.Disconnect(context.WithoutCancel(ctx), conn)
		conn.close()
	}()

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.DebugContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			h.dispatch(ctx, identity, req)
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event, ok := <-conn.out:
			if !ok {
				return nil
			}
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, identity string, req Request) {
	switch req.Type {
	case "dm_send":
		var dedupeKey string
		if req.ClientID != "" {
			dedupeKey = identity + ":" + req.ClientID
			if err := h.sent.Add(dedupeKey, true, cache.DefaultExpiration); err != nil {
				slog.DebugContext(
					ctx, "Duplicate send dropped",
					slog.String("clientId", req.ClientID),
					slog.String("module", "socket"),
				)
				return
			}
		}
		_, err := h.message.Send(ctx, identity, req.ToID, req.Text)
		if err != nil {
			if dedupeKey != "" {
				h.sent.Delete(dedupeKey)
			}
			slog.DebugContext(
				ctx, "Send rejected",
				slog.String("error", err.Error()),
				slog.String("module", "socket"),
			)
		}
	case "dm_mark_read":
		_, err := h.message.MarkRead(ctx, identity, req.OtherID)
		if err != nil {
			slog.DebugContext(
				ctx, "Mark read rejected",
				slog.String("error", err.Error()),
				slog.String("module", "socket"),
			)
		}
	case "h": // heartbeat
		// do nothing
	default:
		slog.InfoContext(
			ctx, "Unknown request type",
			slog.String("type", req.Type),
			slog.String("module", "socket"),
		)
	}
}
