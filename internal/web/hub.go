package web

import (
	"context"
	"sync"

	"sc2summariser/internal/session"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Hub fans session snapshots out to every connected page
type Hub struct {
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	// Encoded snapshots waiting to be sent
	broadcast chan []byte

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Most recent snapshot, sent to pages as they connect
	last   []byte
	lastMu sync.RWMutex

	logger *zap.Logger
}

// NewHub creates a Hub. Call Run before registering clients.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case msg := <-h.broadcast:
			h.broadcastMessage(msg)
		}
	}
}

// Register adds a client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish implements session.Publisher. It never blocks: the orchestrator
// calls it with its lock held.
func (h *Hub) Publish(snap session.Snapshot) {
	msg, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("failed to encode snapshot", zap.Error(err))
		return
	}

	h.lastMu.Lock()
	h.last = msg
	h.lastMu.Unlock()

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast buffer full, dropping snapshot", zap.Uint64("notice_id", snap.NoticeID))
	}
}

// ClientCount returns the number of connected pages
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(c *Client) {
	h.clientsMu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.clientsMu.Unlock()

	h.lastMu.RLock()
	last := h.last
	h.lastMu.RUnlock()
	if last != nil {
		c.TrySend(last)
	}

	h.logger.Debug("page connected", zap.String("client", c.ID), zap.Int("total", total))
}

func (h *Hub) unregisterClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
		h.logger.Debug("page disconnected", zap.String("client", c.ID), zap.Int("total", len(h.clients)))
	}
}

func (h *Hub) broadcastMessage(msg []byte) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		if !c.TrySend(msg) {
			// Too slow to keep up; it reconnects and gets the latest snapshot.
			h.logger.Warn("page buffer full, disconnecting", zap.String("client", c.ID))
			go h.Unregister(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for c := range h.clients {
		close(c.Send)
		delete(h.clients, c)
	}
}
