package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/gesture"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event types sent on /api/events.
const (
	EventGesture             = "gesture"
	EventRecognition         = "recognition"
	EventCalibrationState    = "calibration_state"
	EventCalibrationProgress = "calibration_progress"
)

// Event is one message on the live feed. Only the fields of its type are set.
type Event struct {
	Type      string              `json:"type"`
	Gesture   *gesture.Kind       `json:"gesture,omitempty"`
	Time      *time.Time          `json:"time,omitempty"`
	Enabled   *bool               `json:"enabled,omitempty"`
	Status    *calibration.Status `json:"status,omitempty"`
	Collected int                 `json:"collected,omitempty"`
	Required  int                 `json:"required,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub fans out gesture and calibration notifications to websocket
// clients. It never blocks the notifier: a client that cannot keep up loses
// messages.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

// NewEventHub creates a hub with no clients.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*client]bool)}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writePump()
	c.readPump()

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every client.
func (h *EventHub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("encode %s event: %v", ev.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *EventHub) GestureDetected(ev gesture.Event) {
	k, at := ev.Kind, ev.Time
	h.Broadcast(Event{Type: EventGesture, Gesture: &k, Time: &at})
}

func (h *EventHub) RecognitionChanged(enabled bool) {
	h.Broadcast(Event{Type: EventRecognition, Enabled: &enabled})
}

func (h *EventHub) CalibrationStateChanged(st calibration.Status) {
	h.Broadcast(Event{Type: EventCalibrationState, Status: &st})
}

func (h *EventHub) CalibrationProgress(k gesture.Kind, collected, required int) {
	h.Broadcast(Event{Type: EventCalibrationProgress, Gesture: &k, Collected: collected, Required: required})
}

// readPump discards client messages and returns when the connection drops.
func (c *client) readPump() {
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
