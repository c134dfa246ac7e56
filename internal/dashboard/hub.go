// Package dashboard is the dashboard push channel collaborator (§6):
// on any order mutation the core calls on_order_changed, and this
// package fans that out to connected dashboard websocket clients. The
// core (lifecycle.Engine) knows nothing about Hub; Hub only implements
// lifecycle.Observer. Grounded in the teacher's ws.Hub (register/
// unregister channels, a buffered per-client send channel, a
// non-blocking broadcast).
package dashboard

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rtxbroker/fixcore/internal/auth"
	"github.com/rtxbroker/fixcore/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one connected dashboard websocket.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// orderChangedEvent is the wire shape pushed to dashboard clients.
type orderChangedEvent struct {
	Type            string `json:"type"`
	OrderInternalID int64  `json:"order_internal_id"`
}

// Hub maintains the set of connected dashboard clients and implements
// lifecycle.Observer by broadcasting every order mutation to them.
type Hub struct {
	issuer *auth.TokenIssuer
	log    *logging.Logger

	mu      sync.RWMutex
	clients map[*client]bool

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
}

// NewHub builds a Hub. issuer validates the bearer token dashboard
// clients present on connect.
func NewHub(issuer *auth.TokenIssuer, log *logging.Logger) *Hub {
	h := &Hub{
		issuer:     issuer,
		log:        log,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
	}
	go h.run()
	return h
}

// OnOrderChanged implements lifecycle.Observer.
func (h *Hub) OnOrderChanged(orderInternalID int64) {
	data, err := json.Marshal(orderChangedEvent{Type: "order_changed", OrderInternalID: orderInternalID})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("dashboard broadcast buffer full, dropping event", logging.Int64("order_internal_id", orderInternalID))
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ServeWs upgrades an authenticated request to a websocket and
// registers the resulting client with the hub.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	if _, err := h.issuer.Validate(bearerToken(r)); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("dashboard websocket upgrade failed", logging.String("error", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.register <- c

	go func() {
		defer conn.Close()
		for message := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				break
			}
		}
	}()

	go func() {
		defer func() {
			h.unregister <- c
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
