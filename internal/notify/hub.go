package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Send buffer size
	sendBufferSize = 64
)

// Client is one connected dashboard session.
type Client struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn
	send chan Event
}

// Hub delivers notification events to a user's connected sessions.
// It implements Sink; events for users without open sessions are dropped,
// the log sink keeps the durable record.
type Hub struct {
	clients     map[*Client]bool
	userClients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	events     chan userEvent
	done       chan struct{}
	closeOnce  sync.Once

	logger *zap.Logger
}

type userEvent struct {
	userID string
	event  Event
}

// NewHub creates a Hub. Call Run on its own goroutine.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		events:      make(chan userEvent, 256),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run processes registrations and event delivery until Close.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.send)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			if _, ok := h.userClients[client.UserID]; !ok {
				h.userClients[client.UserID] = make(map[*Client]bool)
			}
			h.userClients[client.UserID][client] = true
			h.logger.Debug("notification client registered",
				zap.String("client_id", client.ID),
				zap.String("user_id", client.UserID),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				if clients, ok := h.userClients[client.UserID]; ok {
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.userClients, client.UserID)
					}
				}
				h.logger.Debug("notification client unregistered",
					zap.String("client_id", client.ID),
				)
			}

		case ue := <-h.events:
			for client := range h.userClients[ue.userID] {
				select {
				case client.send <- ue.event:
				default:
					// Slow consumer: drop the connection, not the hub.
					delete(h.clients, client)
					delete(h.userClients[ue.userID], client)
					close(client.send)
				}
			}
		}
	}
}

// Close stops the hub.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// Notify implements Sink.
func (h *Hub) Notify(userID string, event Event) {
	select {
	case h.events <- userEvent{userID: userID, event: event}:
	case <-h.done:
	}
}

// Register attaches a websocket connection for the user and starts its
// pumps.
func (h *Hub) Register(conn *websocket.Conn, userID string) *Client {
	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan Event, sendBufferSize),
	}

	select {
	case h.register <- client:
	case <-h.done:
		return client
	}

	go client.writePump()
	go client.readPump()
	return client
}

// writePump pushes events and pings to the peer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages; the socket is push-only. It exists
// to notice closed connections and answer pongs.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
