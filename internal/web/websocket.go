package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"trade_go/internal/event"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TickerHub fans price-change and closed-order events out to websocket
// clients. Delivery is best-effort end to end: a slow client is disconnected
// rather than allowed to back-pressure the bus.
type TickerHub struct {
	upgrader websocket.Upgrader
	events   <-chan event.Event

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewTickerHub subscribes the hub to the event bus.
func NewTickerHub(bus *event.Bus) *TickerHub {
	return &TickerHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (for development and demo)
			},
		},
		events:  bus.Subscribe(256),
		clients: make(map[*websocket.Conn]bool),
	}
}

// Run pumps events to all connected clients until ctx is cancelled or the
// bus closes.
func (h *TickerHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev, ok := <-h.events:
			if !ok {
				h.closeAll()
				return
			}
			h.broadcast(ev)
		}
	}
}

// Handle upgrades an HTTP connection and registers it with the hub.
func (h *TickerHub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	slog.Info("ticker client connected")

	// Reader loop only detects disconnects; clients never send data we use.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *TickerHub) broadcast(ev event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(gin.H{"kind": ev.Kind(), "data": ev}); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *TickerHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *TickerHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}
