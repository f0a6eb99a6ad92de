package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"phone-sim-demo/backend/conversation/store"
	"phone-sim-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Client is one connected UI. A client optionally scopes itself to a
// single contact; unscoped clients receive every conversation's events.
type Client struct {
	ID        string
	Conn      *websocket.Conn
	Send      chan []byte
	ContactID string
	Hub       *Hub
}

// Frame is the envelope every event reaches the UI in.
type Frame struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// Hub fans conversation events out to connected clients. It is the
// read side of the store's event feed: appends, edits, removals, typing
// and mood changes all arrive here and get broadcast as JSON frames.
type Hub struct {
	store      *store.Store
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	log        *logger.Logger
	mu         sync.Mutex
}

func NewHub(st *store.Store) *Hub {
	return &Hub{
		store:      st,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		log:        logger.GetGlobal().WithComponent("ws"),
	}
}

// Run pumps store events to clients until Stop is called.
func (h *Hub) Run() {
	events, cancel := h.store.Subscribe()
	defer cancel()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("client registered", "clientId", client.ID, "contactId", client.ContactID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.Debug("client unregistered", "clientId", client.ID)
			}
			h.mu.Unlock()

		case event, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(event)

		case <-h.stop:
			return
		}
	}
}

// Stop terminates the run loop and disconnects every client.
func (h *Hub) Stop() {
	close(h.stop)
	h.mu.Lock()
	for client := range h.clients {
		close(client.Send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(event store.Event) {
	payload, err := json.Marshal(Frame{Type: event.Type, Content: event})
	if err != nil {
		h.log.Warn("event marshal failed", "type", event.Type, "error", err)
		return
	}

	h.mu.Lock()
	for client := range h.clients {
		if client.ContactID != "" && client.ContactID != event.ContactID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			close(client.Send)
			delete(h.clients, client)
			h.log.Debug("client removed due to blocked channel", "clientId", client.ID)
		}
	}
	h.mu.Unlock()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("unexpected close", "clientId", c.ID, "error", err)
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type == "ping" {
			c.send("pong", nil)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) send(frameType string, content interface{}) {
	payload, err := json.Marshal(Frame{Type: frameType, Content: content})
	if err != nil {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}

// ServeWS upgrades an HTTP request into an event-feed connection. The
// optional contactId query parameter scopes the feed to one contact.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "error", err)
		return
	}

	client := &Client{
		ID:        uuid.New().String(),
		Conn:      conn,
		Send:      make(chan []byte, 64),
		ContactID: c.Query("contactId"),
		Hub:       h,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
