package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/beautifulqr/qrgen/pkg/bus"
	"github.com/beautifulqr/qrgen/pkg/logger"
	"github.com/beautifulqr/qrgen/pkg/session"
	"github.com/beautifulqr/qrgen/pkg/studio"
)

const (
	maxMessageSize = 16 << 10
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	writeWait      = 10 * time.Second
)

// outbound is a server to client message.
type outbound struct {
	Type    string            `json:"type"` // "session", "result" or "error"
	Session *bus.SessionEvent `json:"session,omitempty"`
	Params  *studio.Params    `json:"params,omitempty"`
	Result  *bus.ResultEvent  `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// inbound is a client to server message.
type inbound struct {
	Type   string        `json:"type"` // "params", "reset_colors" or "regenerate"
	Params *studio.Patch `json:"params,omitempty"`
}

// Client is one WebSocket connection and the session it owns. Results
// come straight from the session store; only the newest one waits in
// latest, so a slow connection skips intermediate results but never the
// settled one.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	session     *session.Session
	send        chan []byte
	wake        chan struct{}
	unsubscribe func()

	mu        sync.Mutex
	closed    bool
	latest    *studio.Result
	delivered bool
	lastRev   uint64
	lastRank  int
}

// Hub tracks connected clients and ends them when their session closes.
type Hub struct {
	sessions *session.Manager
	msgBus   *bus.MessageBus
	events   chan bus.BusEvent
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub builds a hub. allowOrigin decides cross-origin upgrades; a nil
// func keeps same-origin only.
func NewHub(sessions *session.Manager, msgBus *bus.MessageBus, allowOrigin func(string) bool) *Hub {
	return &Hub{
		sessions: sessions,
		msgBus:   msgBus,
		events:   msgBus.Subscribe(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowOrigin),
		},
		clients: make(map[string]*Client),
	}
}

func originChecker(allow func(string) bool) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return allow != nil && allow(origin)
	}
}

func (h *Hub) Run(ctx context.Context) {
	events := h.events
	defer h.msgBus.Unsubscribe(events)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Session == nil || event.Session.Event != "closed" {
				continue
			}
			h.mu.RLock()
			client := h.clients[event.Session.SessionID]
			h.mu.RUnlock()
			if client != nil {
				client.close()
			}
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.session.ID] = c
	h.mu.Unlock()
	logger.DebugCF("web", "WebSocket client connected", map[string]interface{}{
		"session": c.session.ID,
	})
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c.session.ID] == c {
		delete(h.clients, c.session.ID)
	}
	h.mu.Unlock()
	c.unsubscribe()
	c.close()
	h.sessions.Close(c.session.ID)
	logger.DebugCF("web", "WebSocket client disconnected", map[string]interface{}{
		"session": c.session.ID,
	})
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorCF("web", "WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	sess := h.sessions.Create(studio.DefaultParams())
	client := &Client{
		hub:     h,
		conn:    conn,
		session: sess,
		send:    make(chan []byte, 16),
		wake:    make(chan struct{}, 1),
	}

	// The session message goes out before any pump runs, so it is always
	// the first frame.
	params := sess.Store.Params()
	hello, _ := json.Marshal(outbound{
		Type:    "session",
		Session: &bus.SessionEvent{SessionID: sess.ID, Event: "opened"},
		Params:  &params,
	})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		conn.Close()
		h.sessions.Close(sess.ID)
		return
	}

	client.unsubscribe = sess.Store.Subscribe(client.deliverResult)
	h.register(client)
	// Results published before the subscription are covered by this snapshot.
	client.deliverResult(sess.Store.Result())

	go client.writePump()
	go client.readPump()
}

func (c *Client) enqueue(msg outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.push(data)
}

func (c *Client) push(data []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		logger.WarnCF("web", "Client buffer full, dropping message", map[string]interface{}{
			"session": c.session.ID,
		})
	}
}

func stateRank(state string) int {
	if state == string(studio.StatePending) {
		return 0
	}
	return 1
}

// deliverResult makes r the next result to write unless the client already
// has the same or a newer state. It replaces any result still waiting.
func (c *Client) deliverResult(r studio.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	rank := stateRank(string(r.State()))
	if c.delivered && (r.Revision < c.lastRev || (r.Revision == c.lastRev && rank <= c.lastRank)) {
		return
	}
	c.delivered = true
	c.lastRev = r.Revision
	c.lastRank = rank
	c.latest = &r
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// takeResult returns the waiting result encoded for the wire, or nil.
func (c *Client) takeResult() []byte {
	c.mu.Lock()
	r := c.latest
	c.latest = nil
	c.mu.Unlock()
	if r == nil {
		return nil
	}
	ev := session.ResultEvent(c.session.ID, *r)
	data, err := json.Marshal(outbound{Type: "result", Result: &ev})
	if err != nil {
		return nil
	}
	return data
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(outbound{Type: "error", Error: "invalid message"})
			continue
		}
		if err := c.apply(msg); err != nil {
			c.enqueue(outbound{Type: "error", Error: err.Error()})
		}
	}
}

func (c *Client) apply(msg inbound) error {
	store := c.session.Store
	switch msg.Type {
	case "params":
		if msg.Params == nil {
			return errMissingParams
		}
		if err := store.Params().With(*msg.Params).Validate(); err != nil {
			return err
		}
		store.Apply(*msg.Params)
	case "reset_colors":
		store.ResetColors()
	case "regenerate":
		store.Regenerate()
	default:
		return errUnknownMessage
	}
	return nil
}

func (c *Client) writePump() {
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

		case <-c.wake:
			message := c.takeResult()
			if message == nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
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
