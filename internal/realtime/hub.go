package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/config"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Topics clients can subscribe to
const (
	TopicStats   = "stats"
	TopicRefresh = "refresh"
	TopicSystem  = "system"
)

// MessageType represents different types of real-time messages
type MessageType string

const (
	MessageTypeData        MessageType = "data"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeError       MessageType = "error"
)

// Message represents a real-time message
type Message struct {
	Type      MessageType `json:"type"`
	Topic     string      `json:"topic"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
	ClientID  string      `json:"client_id,omitempty"`
}

// SubscriptionRequest is sent by clients to change their topics
type SubscriptionRequest struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

// ClientGauge receives the number of connected clients
type ClientGauge interface {
	SetWebSocketClients(n int)
}

type envelope struct {
	topic string
	data  []byte
}

// Hub maintains the set of active connections and broadcasts messages
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	gauge      ClientGauge
	loc        *time.Location
	logger     *zap.Logger
}

// Client represents a WebSocket client connection
type Client struct {
	ID     string
	UserID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	topics map[string]bool
	mutex  sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(cfg config.RealTimeConfig, loc *time.Location, gauge ClientGauge, logger *zap.Logger) *Hub {
	if loc == nil {
		loc = time.UTC
	}
	checkOrigin := func(r *http.Request) bool { return true }
	if cfg.CheckOrigin {
		checkOrigin = nil
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     checkOrigin,
		},
		gauge:  gauge,
		loc:    loc,
		logger: logger.Named("realtime"),
	}
}

// Run owns the client set until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			h.reportClients()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.reportClients()
			h.logger.Debug("Client connected", zap.String("client_id", client.ID), zap.String("user_id", client.UserID))

		case client := <-h.unregister:
			h.remove(client)
			h.logger.Debug("Client disconnected", zap.String("client_id", client.ID))

		case msg := <-h.broadcast:
			var slow []*Client
			h.mutex.RLock()
			for client := range h.clients {
				if !client.subscribed(msg.topic) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					slow = append(slow, client)
				}
			}
			h.mutex.RUnlock()

			for _, client := range slow {
				h.logger.Warn("Dropping slow client", zap.String("client_id", client.ID))
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mutex.Unlock()
	h.reportClients()
}

func (h *Hub) reportClients() {
	if h.gauge != nil {
		h.gauge.SetWebSocketClients(h.ClientCount())
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and subscribes the client to stats
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	userID := c.GetString("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topics: map[string]bool{TopicStats: true},
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastToTopic queues a message for every client subscribed to topic
func (h *Hub) BroadcastToTopic(topic string, payload interface{}) error {
	data, err := json.Marshal(&Message{
		Type:      MessageTypeData,
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	select {
	case h.broadcast <- envelope{topic: topic, data: data}:
		return nil
	default:
		return errors.New("broadcast queue is full")
	}
}

func (c *Client) subscribed(topic string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.topics[topic]
}

// readPump pumps subscription requests from the connection
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read error", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}

		var req SubscriptionRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.reply(MessageTypeError, "invalid subscription request")
			continue
		}
		c.handleSubscription(&req)
	}
}

// writePump pumps messages from the hub to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleSubscription(req *SubscriptionRequest) {
	var kind MessageType
	c.mutex.Lock()
	switch MessageType(req.Type) {
	case MessageTypeSubscribe:
		kind = MessageTypeSubscribe
		for _, topic := range req.Topics {
			c.topics[topic] = true
		}
	case MessageTypeUnsubscribe:
		kind = MessageTypeUnsubscribe
		for _, topic := range req.Topics {
			delete(c.topics, topic)
		}
	default:
		kind = MessageTypeError
	}
	topics := make([]string, 0, len(c.topics))
	for topic := range c.topics {
		topics = append(topics, topic)
	}
	c.mutex.Unlock()

	if kind == MessageTypeError {
		c.reply(kind, "unknown request type")
		return
	}
	c.reply(kind, topics)
}

// reply sends a system message straight to this client
func (c *Client) reply(kind MessageType, payload interface{}) {
	data, err := json.Marshal(&Message{
		Type:      kind,
		Topic:     TopicSystem,
		Payload:   payload,
		Timestamp: time.Now(),
		ClientID:  c.ID,
	})
	if err != nil {
		return
	}

	c.hub.mutex.RLock()
	defer c.hub.mutex.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
