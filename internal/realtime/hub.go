// Package realtime pushes conversation updates to connected websocket clients.
package realtime

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// sendBuffer is how many pushes may queue for one connection before it is
// treated as stalled and dropped.
const sendBuffer = 16

type client struct {
	conn      *websocket.Conn
	userID    uuid.UUID
	send      chan interface{}
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, userID uuid.UUID) *client {
	return &client{
		conn:   conn,
		userID: userID,
		send:   make(chan interface{}, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// Hub tracks open connections per user. A user may hold several.
type Hub struct {
	Connections sync.Map
	Upgrader    websocket.Upgrader
	done        chan struct{}
	closeOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		done: make(chan struct{}),
	}
}

// Connect upgrades the request and keeps the connection until the peer leaves.
func (h *Hub) Connect(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := newClient(conn, userID)
	h.Connections.Store(c, userID)
	go h.serve(c)
	go h.writePump(c)
	return nil
}

// writePump is the only writer of data frames on c.
func (h *Hub) writePump(c *client) {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(payload); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

func (h *Hub) serve(c *client) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Hub.serve: recovered from panic: %v", r)
		}
		h.drop(c)
	}()
	for {
		// Clients only receive; reading keeps control frames flowing.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	c.close()
	h.Connections.Delete(c)
}

// Notify queues payload for every connection of userID without waiting on the
// network. A connection whose queue is full is dropped.
func (h *Hub) Notify(userID uuid.UUID, payload interface{}) {
	h.Connections.Range(func(key, value any) bool {
		if value.(uuid.UUID) != userID {
			return true
		}
		c := key.(*client)
		select {
		case c.send <- payload:
		default:
			log.Printf("Hub.Notify: dropping stalled connection of user %s", userID)
			h.drop(c)
		}
		return true
	})
}

func (h *Hub) Connected(userID uuid.UUID) int {
	n := 0
	h.Connections.Range(func(key, value any) bool {
		if value.(uuid.UUID) == userID {
			n++
		}
		return true
	})
	return n
}

func (h *Hub) KeepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.Connections.Range(func(key, value any) bool {
				c := key.(*client)
				if err := c.ping(); err != nil {
					h.drop(c)
				}
				return true
			})
		}
	}
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.Connections.Range(func(key, value any) bool {
			h.drop(key.(*client))
			return true
		})
	})
}
