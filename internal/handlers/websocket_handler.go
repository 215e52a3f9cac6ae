package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sponsor-backend/internal/services"
)

// WebSocketHandler streams settlement events to subscribers.
type WebSocketHandler struct {
	push     *services.WebSocketPushService
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(push *services.WebSocketPushService) *WebSocketHandler {
	return &WebSocketHandler{
		push: push,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWebSocket upgrades the request and pumps settlement frames until
// the client disconnects. An optional ?recipient= filters the feed.
// GET /api/v1/ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	recipient := strings.ToLower(c.Query("recipient"))
	if recipient != "" && !common.IsHexAddress(recipient) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid recipient filter"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := h.push.NewConnection(conn, recipient)
	defer h.push.Release(client)

	log.Printf("📡 WebSocket client connected: %s (recipient filter: %q)", client.ID, recipient)

	conn.WriteJSON(map[string]interface{}{
		"type":      "connected",
		"client_id": client.ID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})

	// Read loop only services control frames; clients never send data.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("⚠️ WebSocket read error for client %s: %v", client.ID, err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}()

	pingTicker := time.NewTicker(54 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case payload, ok := <-client.Send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("❌ WebSocket write error for client %s: %v", client.ID, err)
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			log.Printf("🔌 WebSocket client disconnected: %s", client.ID)
			return
		}
	}
}

// ConnectionStatusHandler reports live subscriber count
// GET /api/v1/ws/status
func (h *WebSocketHandler) ConnectionStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"connections": h.push.ConnectionCount(),
	})
}
