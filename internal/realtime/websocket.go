package realtime

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kivabase/kivabase-backend/internal/accessgate"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// clientMessage is what a connected client sends to manage its
// subscriptions.
type clientMessage struct {
	Type  string `json:"type"`
	Table string `json:"table"`
}

// WSHandler upgrades authorized connections and bridges them to the
// hub. The access gate runs before this handler, so the project is
// already resolved.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.serve)
}

func (h *WSHandler) serve(c *gin.Context) {
	project := accessgate.Project(c)
	if project == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "API key or authorization required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[realtime] upgrade failed project=%s: %v", project.ID, err)
		return
	}

	sub := h.hub.NewSubscriber(project.ID)
	done := make(chan struct{})

	go h.writeLoop(conn, sub, done)
	h.readLoop(conn, sub)

	close(done)
	h.hub.Remove(sub)
	_ = conn.Close()
}

// readLoop consumes subscribe/unsubscribe messages until the
// connection drops.
func (h *WSHandler) readLoop(conn *websocket.Conn, sub *Subscriber) {
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "subscribe":
			if msg.Table != "" {
				h.hub.Subscribe(sub, msg.Table)
			}
		case "unsubscribe":
			if msg.Table != "" {
				h.hub.Unsubscribe(sub, msg.Table)
			}
		}
	}
}

// writeLoop pushes changes and keepalive pings. Writes are serialized
// here; nothing else touches the connection's write side.
func (h *WSHandler) writeLoop(conn *websocket.Conn, sub *Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case change := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(change); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
