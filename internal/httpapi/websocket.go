package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ergo-lite/indexer/internal/syncengine"
)

// StatusMessage is what the /status/stream websocket feed pushes: a
// heartbeat carrying the current sync status snapshot.
type StatusMessage struct {
	Type      string             `json:"type"`
	Status    syncengine.Status  `json:"status,omitempty"`
	Timestamp string             `json:"timestamp"`
}

// StatusFeed fans a periodic sync-status snapshot out to any number of
// connected websocket clients, following the same register/unregister/
// broadcast hub shape the teacher's DAG live feed uses.
type StatusFeed struct {
	engine *syncengine.Engine
	log    *slog.Logger

	mu       sync.RWMutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

// NewStatusFeed builds a StatusFeed over a sync engine.
func NewStatusFeed(engine *syncengine.Engine, log *slog.Logger) *StatusFeed {
	return &StatusFeed{
		engine:  engine,
		log:     log,
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Run pushes a status snapshot to every connected client every 2
// seconds until ctx is cancelled.
func (f *StatusFeed) Run(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			f.closeAll()
			return
		case <-ticker.C:
			f.broadcast(ctx)
		}
	}
}

func (f *StatusFeed) broadcast(ctx context.Context) {
	msg := StatusMessage{
		Type:      "status",
		Status:    f.engine.Status(ctx),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.clients {
		if err := c.WriteJSON(msg); err != nil {
			f.log.Warn("status feed write failed", "err", err)
			go f.unregister(c)
		}
	}
}

func (f *StatusFeed) register(c *websocket.Conn) {
	f.mu.Lock()
	f.clients[c] = true
	f.mu.Unlock()
}

func (f *StatusFeed) unregister(c *websocket.Conn) {
	f.mu.Lock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		c.Close()
	}
	f.mu.Unlock()
}

func (f *StatusFeed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		c.Close()
		delete(f.clients, c)
	}
}

// HandleWebSocket upgrades an HTTP connection and registers it with the
// feed.
func (f *StatusFeed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	f.register(conn)

	initial, _ := json.Marshal(StatusMessage{Type: "status", Status: f.engine.Status(r.Context()), Timestamp: time.Now().UTC().Format(time.RFC3339)})
	conn.WriteMessage(websocket.TextMessage, initial)

	go func() {
		defer f.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
