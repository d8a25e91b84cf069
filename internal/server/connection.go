package server

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/sekaiscout/internal/catalog"
	"github.com/gravitas-games/sekaiscout/internal/network"
	"github.com/gravitas-games/sekaiscout/internal/notify"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Connection represents a dashboard viewer's WebSocket connection
type Connection struct {
	ws     *websocket.Conn
	server *Server
	claims *Claims

	// Buffered channel for outbound messages. It is never closed; done
	// stops the write pump instead, so late notifications cannot panic.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	closed      bool
	accountID   string
	filter      filter
	unsubscribe func()
}

// NewConnection creates a new connection
func NewConnection(ws *websocket.Conn, server *Server, claims *Claims) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		claims: claims,
		send:   make(chan []byte, 64),
		done:   make(chan struct{}),
		filter: server.defaultFilter,
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection to the server
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Warn("websocket read error", "err", err)
			}
			return
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.SendError(network.ErrCodeInvalidMessage, "Failed to parse message")
			continue
		}
		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.server.logger.Warn("websocket write error", "err", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	switch msg.Type {
	case network.MsgTypeSubscribe:
		c.handleSubscribe(msg.Payload)

	case network.MsgTypeSetFilter:
		c.handleSetFilter(msg.Payload)

	case network.MsgTypePing:
		c.SendMessage(&network.ServerMessage{
			Type:    network.MsgTypePong,
			Payload: network.PongPayload{Timestamp: time.Now().Unix()},
		})

	default:
		c.SendError(network.ErrCodeUnknownType, fmt.Sprintf("Unknown message type %q", msg.Type))
	}
}

// handleSubscribe switches the connection to another account and sends its
// current state.
func (c *Connection) handleSubscribe(payload json.RawMessage) {
	var sub network.SubscribePayload
	if err := json.Unmarshal(payload, &sub); err != nil || sub.AccountID == "" {
		c.SendError(network.ErrCodeInvalidMessage, "subscribe needs an account_id")
		return
	}
	if !c.claims.Allows(sub.AccountID) {
		c.SendError(network.ErrCodeForbidden, "token does not cover this account")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.accountID = sub.AccountID
	c.unsubscribe = c.server.deps.Hub.Subscribe(sub.AccountID, c.onEvent)
	f := c.filter
	c.mu.Unlock()

	c.server.session.Watch(c, sub.AccountID)
	c.sendStatus(sub.AccountID)
	c.sendResources(sub.AccountID, f)
}

// handleSetFilter changes the resource shown and resends the resources view.
func (c *Connection) handleSetFilter(payload json.RawMessage) {
	var req network.FilterPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendError(network.ErrCodeInvalidFilter, "Invalid filter")
		return
	}
	cat, ok := catalog.ParseCategory(req.ResourceType)
	if !ok {
		c.SendError(network.ErrCodeInvalidFilter, fmt.Sprintf("Unknown resource type %q", req.ResourceType))
		return
	}

	c.mu.Lock()
	c.filter = filter{category: cat, resourceID: req.ResourceID}
	accountID, f := c.accountID, c.filter
	c.mu.Unlock()

	if accountID == "" {
		c.SendError(network.ErrCodeNotSubscribed, "Filter saved; subscribe to an account to see resources")
		return
	}
	c.sendResources(accountID, f)
}

// onEvent runs on the hub's goroutine.
func (c *Connection) onEvent(ev notify.Event) {
	c.mu.Lock()
	current, f := c.accountID, c.filter
	c.mu.Unlock()
	if ev.AccountID != current {
		return
	}

	switch ev.Kind {
	case notify.KindMatches:
		c.sendStatus(ev.AccountID)
	case notify.KindHarvestMap:
		c.sendResources(ev.AccountID, f)
	}
}

func (c *Connection) sendStatus(accountID string) {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeStatus,
		Payload: c.server.statusPayload(accountID),
	})
}

func (c *Connection) sendResources(accountID string, f filter) {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeResources,
		Payload: c.server.resourcesPayload(accountID, f),
	})
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.server.logger.Error("failed to marshal message", "type", msg.Type, "err", err)
		return
	}

	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.server.logger.Warn("send buffer full, dropping message", "type", msg.Type)
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close drops the hub subscription and stops the write pump. It is safe to
// call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		if c.unsubscribe != nil {
			c.unsubscribe()
			c.unsubscribe = nil
		}
		c.mu.Unlock()
		close(c.done)
		c.ws.Close()
	})
}
