package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/eckscan/internal/reconcile"
)

// Message is the envelope pushed to scanner UIs.
type Message struct {
	Type  string           `json:"type"`
	Event *reconcile.Event `json:"event,omitempty"`
}

// MessageScanEvent carries a scan outcome: alert text, sound cue or prompt.
const MessageScanEvent = "SCAN_EVENT"

type subscription struct {
	client    *Client
	sessionID string
}

type outbound struct {
	sessionID string
	payload   []byte
}

// Hub fans scan events out to the websocket clients watching a session. Clients
// without a session filter receive every event.
type Hub struct {
	// Registered clients and the session each one follows
	clients map[*Client]string

	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	broadcast  chan outbound
	done       chan struct{}

	log *logrus.Logger

	// Guards clients for readers outside Run
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]string),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop. It returns when ctx is done.
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
			h.clients[c] = c.sessionID
			h.mu.Unlock()
			h.log.WithFields(logrus.Fields{"client": c.ID, "session": c.sessionID}).Info("scanner UI connected")

		case c := <-h.unregister:
			h.remove(c)

		case s := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[s.client]; ok {
				h.clients[s.client] = s.sessionID
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.log.WithField("client", c.ID).Info("scanner UI disconnected")
	}
}

func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	var slow []*Client
	for c, session := range h.clients {
		if session != "" && session != msg.sessionID {
			continue
		}
		select {
		case c.send <- msg.payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.WithField("client", c.ID).Warn("dropping slow websocket client")
		h.remove(c)
	}
}

// Notify queues a scan event for delivery. Events are dropped when the queue is full.
func (h *Hub) Notify(ev reconcile.Event) {
	payload, err := json.Marshal(Message{Type: MessageScanEvent, Event: &ev})
	if err != nil {
		h.log.WithError(err).Error("failed to marshal scan event")
		return
	}
	select {
	case h.broadcast <- outbound{sessionID: ev.SessionID, payload: payload}:
	default:
		h.log.WithField("session", ev.SessionID).Warn("websocket queue full, event dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
