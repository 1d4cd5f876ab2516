package websocket

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"onboarding/internal/logger"
	"onboarding/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	replayLimit  = 500
	replayWait   = 5 * time.Second
	sendCapacity = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origins are enforced by CORS on the REST surface; the token gates the feed
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Replayer loads the catalog events a reconnecting client missed (seq > since)
type Replayer func(ctx context.Context, since uint64, limit int) ([]realtime.Message, error)

// Client represents a single connected WebSocket client
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan realtime.Message

	replay []realtime.Message
	// seqs delivered by the replay; live copies of these are skipped
	replayed map[uint64]struct{}
}

// Hub maintains the set of active clients and broadcasts catalog messages to them
type Hub struct {
	log        *logger.Logger
	clients    map[*Client]bool
	broadcast  chan realtime.Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:        log.With("component", "ws_hub"),
		broadcast:  make(chan realtime.Message, sendCapacity),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Run is the dispatch loop; it returns when ctx is cancelled and closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("websocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.Debug("websocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// slow client; it catches up through since-replay on reconnect
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues msg for every connected client. It drops msg once Run has returned.
func (h *Hub) Broadcast(msg realtime.Message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// writePump writes the replay backlog first, then live messages. A live message is
// skipped only when the backlog already carried its seq: seqs are assigned inside
// transactions and may commit out of order, so no high-water mark is kept.
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()

	for _, msg := range c.replay {
		if err := c.write(msg); err != nil {
			return
		}
		c.replayed[msg.Seq] = struct{}{}
	}
	c.replay = nil

	for msg := range c.Send {
		if _, dup := c.replayed[msg.Seq]; dup && msg.Seq != 0 {
			continue
		}
		if err := c.write(msg); err != nil {
			return
		}
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) write(msg realtime.Message) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(msg)
}

// readPump only drains the connection so close frames are noticed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("websocket read failed", "error", err)
			}
			break
		}
	}
}

// ServeWs authenticates the token query param, upgrades the connection and replays
// events after ?since= when given.
func ServeWs(hub *Hub, c *gin.Context, secret []byte, replay Replayer) {
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.log.Info("websocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		hub.log.Info("websocket connection rejected: invalid token", "error", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	role, _ := claims["role"].(string)
	if role != "admin" && role != "employee" {
		hub.log.Info("websocket connection rejected: inadequate permissions", "role", role)
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	var since uint64
	sinceRaw, wantReplay := c.GetQuery("since")
	if wantReplay {
		since, err = strconv.ParseUint(sinceRaw, 10, 64)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan realtime.Message, sendCapacity),
		replayed: make(map[uint64]struct{}),
	}
	// register before loading the backlog so nothing committed in between is lost
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	if wantReplay && replay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), replayWait)
		backlog, err := replay(ctx, since, replayLimit)
		cancel()
		if err != nil {
			hub.log.Warn("websocket replay failed", "since", since, "error", err)
		}
		client.replay = backlog
	}

	go client.writePump()
	go client.readPump()
}
