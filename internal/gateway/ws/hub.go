package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/dohr-michael/todoia/internal/events"
)

// Client represents a connected WebSocket client bound to one owner.
type Client struct {
	conn  *websocket.Conn
	send  chan []byte
	hub   *Hub
	owner string
}

// Hub manages WebSocket clients and pushes bus events to the clients of the
// event's owner.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	unsubscribe func()
}

// NewHub creates a hub relaying task and chat notifications from bus.
func NewHub(bus *events.Bus) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
	}

	h.unsubscribe = bus.Subscribe(func(e events.Event) {
		if e.Owner == "" {
			return
		}
		frame, err := NewEventFrame(string(e.Type), e)
		if err != nil {
			slog.Error("marshal event frame", "error", err)
			return
		}
		data, err := MarshalFrame(frame)
		if err != nil {
			slog.Error("marshal frame", "error", err)
			return
		}
		h.sendTo(e.Owner, data)
	}, events.EventTasksChanged, events.EventChatMessage)

	return h
}

// sendTo queues data for every client of owner.
func (h *Hub) sendTo(owner string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.owner != owner {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client too slow; it will catch up on its next re-fetch.
			slog.Debug("ws client send buffer full", "owner", owner)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Info("ws client connected", "owner", c.owner, "clients", len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		slog.Info("ws client disconnected", "owner", c.owner, "clients", len(h.clients))
	}
}

// ServeWS upgrades an already authenticated request and manages the client
// lifecycle. It blocks until the connection ends.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, owner string, opts *websocket.AcceptOptions) {
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}

	client := &Client{
		conn:  conn,
		send:  make(chan []byte, 64),
		hub:   h,
		owner: owner,
	}

	h.register(client)

	ctx := r.Context()
	go client.writePump(ctx)
	client.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("ws read closed", "status", websocket.CloseStatus(err))
			} else {
				slog.Debug("ws read error", "error", err)
			}
			return
		}

		frame, err := UnmarshalFrame(data)
		if err != nil {
			slog.Warn("ws unmarshal frame", "error", err)
			continue
		}
		if frame.Type != FrameTypeRequest {
			slog.Debug("ws ignored frame", "type", frame.Type)
			continue
		}
		c.handleRequest(frame)
	}
}

func (c *Client) handleRequest(frame Frame) {
	switch Method(frame.Method) {
	case MethodPing:
		c.reply(frame.ID, true, map[string]bool{"pong": true}, "")
	case MethodWhoAmI:
		c.reply(frame.ID, true, map[string]string{"owner": c.owner}, "")
	default:
		c.reply(frame.ID, false, nil, "unknown method: "+frame.Method)
	}
}

func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) reply(id string, ok bool, payload any, errMsg string) {
	f, err := NewResponseFrame(id, ok, payload, errMsg)
	if err != nil {
		return
	}
	data, err := MarshalFrame(f)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Close shuts down the hub and all client connections.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Close(websocket.StatusGoingAway, "server shutdown")
	}
}
