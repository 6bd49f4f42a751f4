package api

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/enrich"
)

const (
	hubBuffer    = 256
	writeTimeout = 10 * time.Second
)

// Hub pushes campaign progress events to every connected websocket client.
// It implements enrich.EventSink.
type Hub struct {
	upgrader websocket.Upgrader

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan enrich.Event
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(e enrich.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(e)
}

// NewHub creates a Hub accepting upgrades from the given origins. A "*" entry
// or a request without an Origin header is always accepted.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan enrich.Event, hubBuffer),
		done:       make(chan struct{}),
		clients:    make(map[*wsClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Run dispatches registrations and events until ctx is done, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				_ = c.conn.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			zap.L().Debug("api: websocket client connected", zap.Int("clients", n))

		case c := <-h.unregister:
			h.drop(c)

		case e := <-h.broadcast:
			h.mu.RLock()
			targets := make([]*wsClient, 0, len(h.clients))
			for c := range h.clients {
				targets = append(targets, c)
			}
			h.mu.RUnlock()

			for _, c := range targets {
				if err := c.send(e); err != nil {
					zap.L().Debug("api: websocket write failed", zap.Error(err))
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		_ = c.conn.Close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	zap.L().Debug("api: websocket client disconnected", zap.Int("clients", n))
}

// Publish queues e for broadcast. When the queue is full the event is dropped.
func (h *Hub) Publish(e enrich.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case h.broadcast <- e:
	default:
		zap.L().Warn("api: event queue full, dropping event",
			zap.String("event", string(e.Type)),
			zap.Int64("campaign_id", e.CampaignID),
		)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Incoming messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("api: websocket upgrade failed", zap.Error(err))
		return
	}
	c := &wsClient{conn: conn}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- c:
				case <-h.done:
				}
				return
			}
		}
	}()
}
