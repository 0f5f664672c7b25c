package api

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jonesrussell/matterscout/internal/hub"
	"github.com/jonesrussell/matterscout/internal/logger"
)

const (
	wsReadLimit    = 512
	wsPongDeadline = 90 * time.Second
)

// WSHandler upgrades HTTP requests to websocket subscribers and registers
// them with the hub.
type WSHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewWSHandler creates a websocket handler. Origins mirror the CORS config;
// an empty list or "*" accepts any origin.
func NewWSHandler(h *hub.Hub, origins []string, log logger.Logger) *WSHandler {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")

	return &WSHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				return slices.Contains(origins, r.Header.Get("Origin"))
			},
		},
		logger: log,
	}
}

// ServeWS handles GET /ws: accept the handshake, register the subscriber,
// and pump reads until the connection drops.
func (w *WSHandler) ServeWS(c *gin.Context) {
	conn, err := w.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		w.logger.Warn("Websocket upgrade failed", logger.Error(err))
		return
	}

	wrapped := &wsConn{conn: conn}
	sub := hub.NewSubscriber(wrapped)
	w.hub.Register(sub)

	go w.readPump(sub, wrapped)
}

// readPump detects disconnects and answers text heartbeats. Binary frames
// are reserved for notifications; the ping/pong heartbeat stays on the text
// channel.
func (w *WSHandler) readPump(sub *hub.Subscriber, conn *wsConn) {
	defer func() {
		w.hub.Unregister(sub)
		_ = conn.Close()
	}()

	conn.conn.SetReadLimit(wsReadLimit)
	_ = conn.conn.SetReadDeadline(time.Now().Add(wsPongDeadline))

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.logger.Debug("Subscriber read failed",
					logger.String("subscriber_id", sub.ID()),
					logger.Error(err),
				)
			}
			return
		}

		_ = conn.conn.SetReadDeadline(time.Now().Add(wsPongDeadline))

		if messageType == websocket.TextMessage && string(data) == "ping" {
			if err := conn.sendText([]byte("pong"), time.Now().Add(hub.DefaultSendTimeout)); err != nil {
				return
			}
		}
	}
}

// wsConn adapts a gorilla websocket connection to the hub's Conn interface.
// Writes are serialized: gorilla allows only one concurrent writer.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// SendBinary writes one binary frame within the deadline.
func (c *wsConn) SendBinary(payload []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, payload)
}

// sendText writes one text frame within the deadline.
func (c *wsConn) sendText(payload []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close terminates the connection.
func (c *wsConn) Close() error {
	return c.conn.Close()
}
