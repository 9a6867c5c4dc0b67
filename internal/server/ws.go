package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSMessage is the event envelope sent over WebSocket. Clients switch on
// Type and treat Data as an arbitrary JSON value.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSClient wraps a connection with a per-connection write mutex; gorilla
// forbids concurrent writes on one Conn.
type WSClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WSHub is a broadcast hub for the readings stream.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// NewWSHub constructs an empty hub.
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]struct{})}
}

// Add registers a connection with the hub.
func (h *WSHub) Add(conn *websocket.Conn) *WSClient {
	c := &WSClient{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Remove unregisters a client and closes its connection.
func (h *WSHub) Remove(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

// Broadcast sends one message to every client. Write failures are ignored;
// the read loop notices the disconnect and removes the client.
func (h *WSHub) Broadcast(msg WSMessage) {
	b, _ := json.Marshal(msg)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.mu.Lock()
		_ = c.conn.WriteMessage(websocket.TextMessage, b)
		c.mu.Unlock()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway runs on a plant-floor network without downstream
	// authentication; origins are not restricted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWSReadings upgrades the connection and parks it in the hub. The
// read loop only exists to detect disconnects.
func (s *Server) handleWSReadings(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := s.hub.Add(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.hub.Remove(client)
			return
		}
	}
}

// Watch broadcasts the latest raw readings of every sensor once per
// interval until the context is canceled.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		rows := make([]SensorReading, 0, len(s.reg.Sensors()))
		for _, sensor := range s.reg.Sensors() {
			rows = append(rows, sensorReadingRow(sensor))
		}
		s.hub.Broadcast(WSMessage{Type: "readings", Data: rows})
	}
}
