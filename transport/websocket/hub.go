package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// EventHandler receives connection lifecycle and inbound game events.
// The router implements this; the hub never interprets game semantics.
type EventHandler interface {
	OnConnect(connID string)
	OnJoinRequest(connID, sessionID string)
	OnMove(connID, move string)
	OnDisconnect(connID string)
}

// Event is the JSON frame exchanged with clients in both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type movePayload struct {
	Move string `json:"move"`
}

type joinPayload struct {
	SessionID string `json:"sessionId"`
}

// Client represents one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string
	send chan []byte

	// sessionID is the channel the client currently belongs to; guarded
	// by the hub mutex.
	sessionID string
}

// Hub tracks active clients and their session channels, and delivers
// outbound events. Send and Broadcast only enqueue onto per-client
// buffered queues, so they are safe to call from inside session
// critical sections; the write pumps do the network I/O.
type Hub struct {
	handler EventHandler

	mu       sync.Mutex
	clients  map[string]*Client
	channels map[string]map[string]*Client
}

// NewHub creates a hub with no clients.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
	}
}

// SetHandler wires the event handler. Must be called before ServeWS;
// split from NewHub because the handler's dependencies (the registry)
// need the hub first.
func (h *Hub) SetHandler(handler EventHandler) {
	h.handler = handler
}

// ServeWS upgrades an HTTP request into a tracked client connection. A
// ?session=ID query performs an explicit join instead of matchmaking.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		id:   uuid.NewString(),
		send: make(chan []byte, 256),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	go client.writePump()

	log.Printf("Client %s connected", client.id)

	if sessionID := r.URL.Query().Get("session"); sessionID != "" {
		h.handler.OnJoinRequest(client.id, sessionID)
	} else {
		h.handler.OnConnect(client.id)
	}

	go client.readPump()
}

// JoinChannel moves a connection into a session's channel, leaving any
// channel it was in before.
func (h *Hub) JoinChannel(connID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}

	h.leaveChannelLocked(client)

	if h.channels[sessionID] == nil {
		h.channels[sessionID] = make(map[string]*Client)
	}
	h.channels[sessionID][connID] = client
	client.sessionID = sessionID
}

// Send delivers an event to a single connection.
func (h *Hub) Send(connID, event string, payload any) {
	data, err := marshalEvent(event, payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[connID]; ok {
		h.enqueueLocked(client, data)
	}
}

// Broadcast delivers an event to every connection in a session's
// channel.
func (h *Hub) Broadcast(sessionID, event string, payload any) {
	data, err := marshalEvent(event, payload)
	if err != nil {
		log.Printf("Failed to marshal %s broadcast: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.channels[sessionID] {
		h.enqueueLocked(client, data)
	}
}

// enqueueLocked queues data for a client without blocking. A client
// whose queue is full is too slow to keep up and gets dropped; the
// closed connection then surfaces through the read pump's normal
// disconnect path.
func (h *Hub) enqueueLocked(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		log.Printf("Client %s send queue full, dropping connection", client.id)
		h.removeClientLocked(client)
	}
}

func (h *Hub) removeClientLocked(client *Client) {
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	h.leaveChannelLocked(client)
	close(client.send)
}

func (h *Hub) leaveChannelLocked(client *Client) {
	if client.sessionID == "" {
		return
	}
	if members, ok := h.channels[client.sessionID]; ok {
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.channels, client.sessionID)
		}
	}
	client.sessionID = ""
}

// ClientCount returns the number of tracked connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func marshalEvent(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return json.Marshal(Event{Event: event, Data: data})
}

// readPump pumps inbound messages from the connection to the handler.
func (c *Client) readPump() {
	defer func() {
		c.hub.handler.OnDisconnect(c.id)

		c.hub.mu.Lock()
		c.hub.removeClientLocked(c)
		c.hub.mu.Unlock()

		c.conn.Close()
		log.Printf("Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		c.dispatch(raw)
	}
}

// dispatch routes one inbound frame. Unknown events and unparseable
// frames get a targeted error; game-level validity is the router's job.
func (c *Client) dispatch(raw []byte) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		c.hub.Send(c.id, "error", map[string]string{"message": "malformed message"})
		return
	}

	switch event.Event {
	case "move":
		var payload movePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			// Tolerate a bare string payload as well.
			var move string
			if err := json.Unmarshal(event.Data, &move); err != nil {
				c.hub.Send(c.id, "error", map[string]string{"message": "malformed move payload"})
				return
			}
			payload.Move = move
		}
		c.hub.handler.OnMove(c.id, payload.Move)

	case "joinSession":
		var payload joinPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			c.hub.Send(c.id, "error", map[string]string{"message": "malformed join payload"})
			return
		}
		c.hub.handler.OnJoinRequest(c.id, payload.SessionID)

	default:
		c.hub.Send(c.id, "error", map[string]string{"message": "unknown event: " + event.Event})
	}
}

// writePump pumps queued messages to the connection.
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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
