// Package websocket pushes live-reload notifications to connected browsers.
//
// A single hub goroutine owns the client set. HTTP handlers register
// clients through channels and Broadcast never blocks the caller.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/waha/internal/logging"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 16
)

// Hub manages live-reload connections.
type Hub struct {
	clients      map[*websocket.Conn]*client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *client
	unregister chan *websocket.Conn

	originPatterns []string
	logger         logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	done         chan struct{}
}

// NewHub creates a hub and starts its goroutine. originPatterns is passed to
// websocket.Accept; nil allows same-origin connections only.
func NewHub(logger logging.Logger, originPatterns []string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:        make(map[*websocket.Conn]*client),
		broadcast:      make(chan []byte, 64),
		register:       make(chan *client, 8),
		unregister:     make(chan *websocket.Conn, 8),
		originPatterns: originPatterns,
		logger:         logger.WithComponent("livereload"),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	go h.run()

	return h
}

// HandleWebSocket upgrades the request and keeps the connection until the
// browser goes away or the hub shuts down.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.originPatterns,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		// Accept has already written the error response.
		h.logger.Warn(r.Context(), err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast queues msg for every connected client. It drops the message
// when the queue is full or the hub is closed.
func (h *Hub) Broadcast(msg UpdateMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "failed to marshal broadcast message")
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
	default:
		h.logger.Warn(h.ctx, nil, "broadcast queue full, dropping message", "type", msg.Type)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection and stops the hub goroutine.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(h.cancel)

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.clientsMutex.Lock()
			h.clients[c.conn] = c
			n := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(h.ctx, "client connected", "clients", n)

		case conn := <-h.unregister:
			h.removeClient(conn, websocket.StatusNormalClosure, "")

		case message := <-h.broadcast:
			h.clientsMutex.RLock()
			for conn, c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Slow client; drop it rather than block the hub.
					go func(conn *websocket.Conn) {
						select {
						case h.unregister <- conn:
						case <-h.ctx.Done():
						}
					}(conn)
				}
			}
			h.clientsMutex.RUnlock()

		case <-h.ctx.Done():
			h.clientsMutex.Lock()
			for conn, c := range h.clients {
				close(c.send)
				go closeConn(conn, websocket.StatusGoingAway, "server shutting down")
			}
			h.clients = make(map[*websocket.Conn]*client)
			h.clientsMutex.Unlock()
			return
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	h.clientsMutex.Lock()
	c, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(c.send)
	}
	n := len(h.clients)
	h.clientsMutex.Unlock()

	if ok {
		go closeConn(conn, code, reason)
		h.logger.Debug(h.ctx, "client disconnected", "clients", n)
	}
}

// closeConn runs the close handshake, which waits for the peer, so it must
// not run on the hub goroutine.
func closeConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	_ = conn.Close(code, reason)
}

// readPump discards client messages; it exists to notice disconnects and
// to process control frames.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c.conn:
		case <-h.ctx.Done():
		}
	}()

	for {
		if _, _, err := c.conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-h.ctx.Done():
			return
		}
	}
}
