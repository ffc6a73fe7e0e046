package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fleetsight/collector/internal/logging"
	"github.com/fleetsight/collector/internal/monitoring"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	clientBuffer = 32
	hubBuffer    = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced by the HTTP middleware
	},
}

// Event is one accepted record pushed to connected dashboards.
type Event struct {
	Kind     string      `json:"kind"`
	DeviceID string      `json:"device_id"`
	Time     time.Time   `json:"time"`
	Record   interface{} `json:"record"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans accepted records out to WebSocket subscribers. Slow or dead
// clients are disconnected rather than allowed to stall the broadcast path.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	metrics    *monitoring.Metrics
	log        *logging.Logger
}

// NewHub creates an empty hub. Call Run before accepting connections.
func NewHub(metrics *monitoring.Metrics, log *logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, hubBuffer),
		done:       make(chan struct{}),
		metrics:    metrics,
		log:        log,
	}
}

// Run owns the client set until ctx is cancelled. Call it on its own
// goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.metrics.IncWSConnections()

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.metrics.DecWSConnections()
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Too far behind; cut the client loose.
					delete(h.clients, c)
					close(c.send)
					h.metrics.DecWSConnections()
				}
			}
		}
	}
}

// Broadcast pushes one event to every subscriber. It never blocks the
// caller: when the hub itself is backlogged the event is dropped.
func (h *Hub) Broadcast(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	message, err := sonic.Marshal(event)
	if err != nil {
		h.log.Error("stream event marshal failed", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- message:
		h.metrics.IncWSEvent(event.Kind)
	default:
	}
}

// HandleConnection upgrades an HTTP request to a stream subscription.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump(h)
}

// writePump pushes hub messages and keepalive pings to one connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// readPump discards client input; the stream is one-way. It exists to
// notice closed connections and answer pings.
func (c *client) readPump(h *Hub) {
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
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
