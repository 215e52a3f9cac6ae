package services

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/clients"
)

// Connection is one websocket subscriber. Recipient filters the feed to a
// single withdrawal recipient; empty means the full firehose.
type Connection struct {
	ID        string          `json:"id"`
	Recipient string          `json:"recipient"`
	Conn      *websocket.Conn `json:"-"`
	Send      chan []byte     `json:"-"`
	LastPing  time.Time       `json:"last_ping"`
}

// PushMessage is the envelope every push frame uses.
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id"`
	Data      interface{} `json:"data"`
}

// WebSocketPushService fans settlement events out to connected clients.
type WebSocketPushService struct {
	connections map[string]*Connection
	hub         chan PushMessage
	register    chan *Connection
	unregister  chan *Connection
	mutex       sync.RWMutex
}

func NewWebSocketPushService() *WebSocketPushService {
	service := &WebSocketPushService{
		connections: make(map[string]*Connection),
		hub:         make(chan PushMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
	}
	go service.run()
	return service
}

func (s *WebSocketPushService) run() {
	for {
		select {
		case conn := <-s.register:
			s.handleRegister(conn)
		case conn := <-s.unregister:
			s.handleUnregister(conn)
		case message := <-s.hub:
			s.handleBroadcast(message)
		}
	}
}

// NewConnection builds a registered connection for a websocket handler.
func (s *WebSocketPushService) NewConnection(ws *websocket.Conn, recipient string) *Connection {
	conn := &Connection{
		ID:        uuid.NewString(),
		Recipient: strings.ToLower(recipient),
		Conn:      ws,
		Send:      make(chan []byte, 64),
		LastPing:  time.Now(),
	}
	s.register <- conn
	return conn
}

// Release unregisters a connection and closes its send channel.
func (s *WebSocketPushService) Release(conn *Connection) {
	s.unregister <- conn
}

// BroadcastSettlement pushes a settled sponsorship to matching subscribers.
func (s *WebSocketPushService) BroadcastSettlement(event *clients.SponsorshipSettledEvent) {
	s.hub <- PushMessage{
		Type:      "sponsorship_settled",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: uuid.NewString(),
		Data:      event,
	}
}

func (s *WebSocketPushService) handleRegister(conn *Connection) {
	s.mutex.Lock()
	s.connections[conn.ID] = conn
	s.mutex.Unlock()
	log.WithFields(log.Fields{
		"connection": conn.ID,
		"recipient":  conn.Recipient,
	}).Debug("WebSocket connection registered")
}

func (s *WebSocketPushService) handleUnregister(conn *Connection) {
	s.mutex.Lock()
	if _, exists := s.connections[conn.ID]; exists {
		delete(s.connections, conn.ID)
		close(conn.Send)
	}
	s.mutex.Unlock()
}

func (s *WebSocketPushService) handleBroadcast(message PushMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		log.WithError(err).Error("Failed to marshal push message")
		return
	}

	recipient := ""
	if event, ok := message.Data.(*clients.SponsorshipSettledEvent); ok {
		recipient = strings.ToLower(event.Recipient)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, conn := range s.connections {
		if conn.Recipient != "" && conn.Recipient != recipient {
			continue
		}
		select {
		case conn.Send <- payload:
		default:
			// slow consumer, drop the frame
			log.WithField("connection", conn.ID).Warn("Push buffer full, dropping frame")
		}
	}
}

// ConnectionCount reports the number of live subscribers.
func (s *WebSocketPushService) ConnectionCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.connections)
}
