package devserver

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// ChangeEvent is pushed to connected admin dashboards on every mutation so
// open listings can refresh themselves.
type ChangeEvent struct {
	Action     string `json:"action"` // created, updated, toggled, deleted
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type changeClient struct {
	hub  *ChangeHub
	conn *websocket.Conn
	send chan []byte
}

// ChangeHub fans change events out to websocket subscribers.
type ChangeHub struct {
	register   chan *changeClient
	unregister chan *changeClient
	broadcast  chan []byte
	clients    map[*changeClient]struct{}
}

func NewChangeHub() *ChangeHub {
	return &ChangeHub{
		register:   make(chan *changeClient),
		unregister: make(chan *changeClient),
		broadcast:  make(chan []byte, 256),
		clients:    map[*changeClient]struct{}{},
	}
}

func (h *ChangeHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				client.conn.Close()
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					delete(h.clients, client)
					close(client.send)
					client.conn.Close()
				}
			}
		}
	}
}

func (h *ChangeHub) Broadcast(ev ChangeEvent) {
	if h == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: failed to marshal change event: %v", err)
		return
	}
	h.broadcast <- data
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// changesHandler upgrades the connection and subscribes it to the hub.
// Browsers cannot set headers on websocket dials, so the token may also
// arrive as an access_token query parameter.
func (s *Server) changesHandler(c *gin.Context) {
	token := c.Query("access_token")
	if token == "" {
		token = bearerToken(c)
	}
	if _, err := s.tokens.parseAccess(token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := &changeClient{hub: s.changes, conn: conn, send: make(chan []byte, sendBufferSize)}
	s.changes.register <- client
	go client.writePump()
	go client.readPump()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > len("Bearer ") {
		return header[len("Bearer "):]
	}
	return ""
}

func (c *changeClient) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *changeClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
