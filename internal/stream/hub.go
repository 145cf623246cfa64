// Package stream pushes engine state to browser clients over WebSocket and
// accepts their interaction events.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/peerglobe/internal/engine"
	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
	clientBuffer   = 64
)

// Source is the read side of the engine.
type Source interface {
	State() engine.State
	Layout() engine.LayoutView
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// offer queues msg without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *client) offer(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub fans engine state out to connected clients. A client that cannot keep
// up misses messages rather than stalling the others.
type Hub struct {
	src     Source
	cmds    Commands
	log     logging.Logger
	metrics *observability.GlobeCollector

	upgrader websocket.Upgrader

	mu         sync.RWMutex
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	// Touched only from Publish, which the engine calls on its own goroutine.
	layoutRevision uint64
	layoutSent     bool
}

// NewHub builds a hub over src. cmds may be nil for a read-only stream.
func NewHub(src Source, cmds Commands, log logging.Logger, metrics *observability.GlobeCollector) *Hub {
	if log == nil {
		log = logging.Noop()
	}
	return &Hub{
		src:     src,
		cmds:    cmds,
		log:     log,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run owns client registration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				c.close()
			}
			h.mu.Unlock()
			h.metrics.SetStreamClients(0)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetStreamClients(n)
			h.log.Info(ctx, "stream client connected", logging.String("client_id", c.id), logging.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetStreamClients(n)
			h.log.Info(ctx, "stream client disconnected", logging.String("client_id", c.id), logging.Int("clients", n))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if !c.offer(msg) {
					h.log.Warn(ctx, "stream client is slow, skipping message", logging.String("client_id", c.id))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish broadcasts st, preceded by the layout when its revision changed.
// It is meant to be installed as the engine's Publish hook.
func (h *Hub) Publish(st engine.State) {
	if !h.layoutSent || st.LayoutRevision != h.layoutRevision {
		layout := h.src.Layout()
		if msg, err := encode(TypeLayout, layout); err == nil {
			h.enqueue(msg)
			h.layoutRevision = layout.Revision
			h.layoutSent = true
		} else {
			h.log.Error(context.Background(), "encode layout", logging.Err(err))
		}
	}
	msg, err := encode(TypeState, st)
	if err != nil {
		h.log.Error(context.Background(), "encode state", logging.Err(err))
		return
	}
	h.enqueue(msg)
}

func (h *Hub) enqueue(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn(context.Background(), "stream broadcast channel full, dropping message")
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}

	// The new client starts from the current picture.
	for _, initial := range []struct {
		typ string
		v   any
	}{{TypeLayout, h.src.Layout()}, {TypeState, h.src.State()}} {
		if msg, err := encode(initial.typ, initial.v); err == nil {
			c.offer(msg)
		}
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

func (h *Hub) writePump(c *client) {
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

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug(ctx, "stream read failed", logging.String("client_id", c.id), logging.Err(err))
			}
			return
		}
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			h.reply(c, TypeError, errorReply{Error: "malformed message"})
			continue
		}
		ack, err := h.dispatch(ctx, req)
		if err != nil {
			h.reply(c, TypeError, errorReply{RequestID: req.RequestID, Error: err.Error()})
			continue
		}
		h.reply(c, TypeAck, ack)
	}
}

func (h *Hub) reply(c *client, typ string, v any) {
	if msg, err := encode(typ, v); err == nil {
		c.offer(msg)
	}
}
