package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"grepconsole/src/broker"
	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/logger"
)

// Event types sent to websocket clients.
const (
	EventLine         = "line"
	EventNotification = "notification"
)

// Event is the message broadcast to websocket clients.
type Event struct {
	Type    string                 `json:"type"`
	Line    *contracts.MatchedLine `json:"line,omitempty"`
	Console string                 `json:"console,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// clientCommand is sent by clients to pick the consoles they follow.
type clientCommand struct {
	Type     string   `json:"type"`
	Consoles []string `json:"consoles,omitempty"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	consoles map[string]bool // nil = every console
}

// Hub streams grep console output to websocket clients.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	done       chan struct{} // closed when Run returns
	mu         sync.RWMutex
	log        logger.Logger
	now        func() time.Time
}

// NewHub creates a Hub. Call Run to start delivering events.
func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        log,
		now:        time.Now,
	}
}

// Run delivers events until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debug("[Hub] Client connected (%d total)", h.ClientCount())

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.Debug("[Hub] Client disconnected (%d total)", h.ClientCount())

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error("[Hub] Marshal error: %v", err)
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				if !c.follows(event) {
					continue
				}
				select {
				case c.send <- data:
				default:
					// Slow client.
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues an event. It never blocks; events are dropped while the hub is backed up.
func (h *Hub) Publish(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("[Hub] Broadcast queue full, dropping %s event", event.Type)
	}
}

// Sink returns the grep.Sink that streams the lines of one console.
func (h *Hub) Sink(consoleID string, title func() string) grep.Sink {
	return grep.SinkFunc(func(text string, kind contracts.OutputKind) {
		t := ""
		if title != nil {
			t = title()
		}
		line := Matched(consoleID, t, text, kind, h.now())
		h.Publish(Event{Type: EventLine, Line: &line, Console: consoleID})
	})
}

// Relay streams the matched lines published to the matches topic by other
// processes until ctx is done.
func (h *Hub) Relay(ctx context.Context, brk broker.Broker, groupID string) error {
	msgs, err := brk.Subscribe(ctx, contracts.TopicGrepMatches, groupID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicGrepMatches, err)
	}
	h.log.Info("[Hub] Relaying %s", contracts.TopicGrepMatches)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var line contracts.MatchedLine
			if err := json.Unmarshal(msg.Value, &line); err != nil {
				h.log.Warn("[Hub] Skipping malformed match: %v", err)
				continue
			}
			h.Publish(Event{Type: EventLine, Line: &line, Console: line.ConsoleID})
		}
	}
}

// Notify implements grep.Notifier.
func (h *Hub) Notify(consoleID, message string) {
	h.Publish(Event{Type: EventNotification, Console: consoleID, Message: message})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("[Hub] Upgrade error: %v", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	if consoles := r.URL.Query()["console"]; len(consoles) > 0 {
		c.follow(consoles)
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) follows(event Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.consoles == nil || event.Console == "" {
		return true
	}
	return c.consoles[event.Console]
}

func (c *client) follow(consoles []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consoles == nil {
		c.consoles = make(map[string]bool)
	}
	for _, id := range consoles {
		c.consoles[id] = true
	}
}

func (c *client) unfollow(consoles []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range consoles {
		delete(c.consoles, id)
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("[Hub] Read error: %v", err)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}
		switch cmd.Type {
		case "follow":
			c.follow(cmd.Consoles)
		case "unfollow":
			c.unfollow(cmd.Consoles)
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
