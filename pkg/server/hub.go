package server

import (
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gofiber/contrib/websocket"

	"github.com/chazu/gusset/pkg/session"
)

// Hub fans mesh events out to the websocket subscribers of each session.
// A single mutex serializes publishes, so no connection is ever written
// from two goroutines at once.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*websocket.Conn]bool
	logger *log.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		subs:   make(map[string]map[*websocket.Conn]bool),
		logger: logger,
	}
}

// Publish sends the event to every subscriber of its session. Suitable as
// a session.Options OnMesh callback.
func (h *Hub) Publish(ev session.MeshEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.subs[ev.SessionID]
	if len(conns) == 0 {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal mesh event", "err", err)
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("mesh event push failed", "session", ev.SessionID, "err", err)
		}
	}
}

func (h *Hub) subscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*websocket.Conn]bool)
	}
	h.subs[sessionID][conn] = true
}

func (h *Hub) unsubscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[sessionID], conn)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
}

// dropSession closes and forgets every subscriber of a removed session.
func (h *Hub) dropSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subs[sessionID] {
		conn.Close()
	}
	delete(h.subs, sessionID)
}
