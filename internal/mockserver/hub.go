package mockserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/model"
)

type wsClient struct {
	conn   *websocket.Conn
	userID model.ID
	mu     sync.Mutex
	// tickets holds the subscribe_ticket ids. Delivery is not filtered by it.
	tickets map[model.ID]struct{}
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) writeRaw(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *wsClient) closeWith(code int, reason string) {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	c.mu.Unlock()
	_ = c.conn.Close()
}

type dropRequest struct {
	code   int
	reason string
	done   chan int
}

type hub struct {
	upgrader     websocket.Upgrader
	authenticate func(token string) (model.User, bool)
	logger       *slog.Logger

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	drop       chan dropRequest
	count      chan chan int
	done       chan struct{}
	clients    map[*wsClient]struct{}
}

func newHub(authenticate func(string) (model.User, bool), logger *slog.Logger) *hub {
	h := &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		authenticate: authenticate,
		logger:       logger,
		register:     make(chan *wsClient),
		unregister:   make(chan *wsClient),
		broadcast:    make(chan []byte, 128),
		drop:         make(chan dropRequest),
		count:        make(chan chan int),
		done:         make(chan struct{}),
		clients:      make(map[*wsClient]struct{}),
	}
	go h.run()
	return h
}

func (h *hub) Close() {
	close(h.done)
}

// ServeWS upgrades first and then checks the token, so a rejected client
// sees a policy violation close instead of a failed handshake.
func (h *hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn, tickets: make(map[model.ID]struct{})}
	user, ok := h.authenticate(r.URL.Query().Get("token"))
	if !ok {
		h.logger.Info("websocket rejected", "reason", "invalid token")
		client.closeWith(websocket.ClosePolicyViolation, "Invalid token")
		return
	}
	client.userID = user.ID
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}
	_ = client.writeJSON(map[string]string{"type": string(model.EventTypeConnected), "message": "Connected as " + user.Username})

	go func() {
		defer func() {
			select {
			case h.unregister <- client:
			case <-h.done:
			}
		}()
		for {
			_, data, err := client.conn.ReadMessage()
			if err != nil {
				return
			}
			h.handleFrame(client, data)
		}
	}()
}

func (h *hub) handleFrame(client *wsClient, data []byte) {
	var frame model.ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.logger.Debug("ignoring websocket frame", "error", err)
		return
	}
	var reply map[string]any
	switch frame.Type {
	case model.FrameTypePing:
		reply = map[string]any{"type": model.EventTypePong}
	case model.FrameTypeSubscribeTicket, model.FrameTypeUnsubscribeTicket:
		if frame.TicketID == nil {
			return
		}
		kind := model.EventTypeSubscribed
		client.mu.Lock()
		if frame.Type == model.FrameTypeSubscribeTicket {
			client.tickets[*frame.TicketID] = struct{}{}
		} else {
			delete(client.tickets, *frame.TicketID)
			kind = model.EventTypeUnsubscribed
		}
		client.mu.Unlock()
		reply = map[string]any{"type": kind, "ticket_id": *frame.TicketID}
	default:
		h.logger.Debug("unknown websocket frame", "type", frame.Type)
		return
	}
	if err := client.writeJSON(reply); err != nil {
		h.logger.Debug("websocket reply failed", "error", err)
	}
}

// Publish fans ev out to every connected client. When the queue is full
// the event is dropped; clients recover on their next resync.
func (h *hub) Publish(ev events.Event) {
	frame, err := events.Encode(ev)
	if err != nil {
		h.logger.Error("encode event", "kind", ev.Kind(), "error", err)
		return
	}
	select {
	case h.broadcast <- frame:
	default:
		h.logger.Warn("event dropped, broadcast queue full", "kind", ev.Kind())
	}
}

// Drop closes every socket with code and reports how many were closed.
func (h *hub) Drop(code int, reason string) int {
	req := dropRequest{code: code, reason: reason, done: make(chan int, 1)}
	select {
	case h.drop <- req:
		return <-req.done
	case <-h.done:
		return 0
	}
}

func (h *hub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				_ = client.conn.Close()
			}
		case frame := <-h.broadcast:
			for client := range h.clients {
				if err := client.writeRaw(frame); err != nil {
					delete(h.clients, client)
					_ = client.conn.Close()
				}
			}
		case req := <-h.drop:
			n := len(h.clients)
			for client := range h.clients {
				client.closeWith(req.code, req.reason)
				delete(h.clients, client)
			}
			req.done <- n
		case reply := <-h.count:
			reply <- len(h.clients)
		case <-h.done:
			for client := range h.clients {
				_ = client.conn.Close()
			}
			return
		}
	}
}
