package handler

import (
	"net/http"
	"time"

	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/pkg/logger"
	"github.com/GoPolymarket/namegate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

type EventHandler struct {
	events   *service.EventService
	upgrader websocket.Upgrader
}

func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// List returns recent ledger notifications, newest first.
func (h *EventHandler) List(c *gin.Context) {
	kind := model.NotificationKind(c.Query("kind"))
	limit := queryLimit(c, 100, 1000)
	c.JSON(http.StatusOK, h.events.List(c.Request.Context(), kind, limit))
}

// Stream upgrades to a websocket and pushes every committed notification.
func (h *EventHandler) Stream(c *gin.Context) {
	// subscribe first so nothing committed after the handshake is missed
	notes, cancel := h.events.Subscribe(256)
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// read pump: only control frames are expected; any error ends the stream
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case n := <-notes:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
