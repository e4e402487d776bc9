package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ndenisov/chatd/internal/domain"
	"github.com/ndenisov/chatd/internal/storage"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Default limit on inbound frame size
	defaultMaxMessageSize = 4096

	// Outbound buffer per connection; sends beyond this drop and are logged
	sendBufferSize = 256
)

var (
	errSendBufferFull = errors.New("ws: send buffer full")
	errSessionClosed  = errors.New("ws: session closed")
)

// MessageStore is the persistence collaborator consumed by the session
// loop.
type MessageStore interface {
	CreateMessage(ctx context.Context, chatID, senderID int64, text string) (domain.Message, error)
	MessageByID(ctx context.Context, id int64) (domain.Message, error)
	MarkMessageRead(ctx context.Context, id int64) (domain.Message, error)
}

// Client owns exactly one live websocket connection for one user.
type Client struct {
	userID   int64
	registry *Registry
	store    MessageStore
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	log      *slog.Logger

	maxMessageSize int64
	closeOnce      sync.Once
}

// NewClient wires a freshly upgraded connection to the registry and store.
// Call registry.Connect and start both pumps to begin the session.
func NewClient(registry *Registry, conn *websocket.Conn, userID int64, store MessageStore, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		userID:         userID,
		registry:       registry,
		store:          store,
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		done:           make(chan struct{}),
		log:            log,
		maxMessageSize: defaultMaxMessageSize,
	}
}

// SetMaxMessageSize overrides the inbound frame size limit. Must be called
// before ReadPump.
func (c *Client) SetMaxMessageSize(limit int64) {
	if limit > 0 {
		c.maxMessageSize = limit
	}
}

// Send queues payload for delivery to the peer. It never blocks: when the
// buffer is full the frame is dropped and an error returned, so one slow
// recipient cannot stall a broadcast. Sends on a closed session are refused.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return errSessionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errSendBufferFull
	}
}

// closeConn tears down the session. The read pump unblocks with a transport
// error and runs the usual disconnect path; the write pump exits via done
// without waiting out its ping interval.
func (c *Client) closeConn() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// ReadPump is the session loop: it processes inbound events strictly in
// arrival order until the transport reports disconnection, then deregisters
// exactly once. Malformed or unknown events are ignored; only transport
// errors end the loop.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.registry.Disconnect(c.userID, c)
		c.closeConn()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("session terminated", "user_id", c.userID, "error", err)
			}
			return
		}

		event, err := DecodeInbound(raw)
		if err != nil {
			c.log.Debug("ignoring inbound frame", "user_id", c.userID, "error", err)
			continue
		}

		switch ev := event.(type) {
		case SendMessageEvent:
			c.handleSendMessage(ctx, ev)
		case ReadReceiptEvent:
			c.handleReadReceipt(ctx, ev)
		}
	}
}

// handleSendMessage persists the message, then fans the stored record out to
// the chat. Persistence commits before any delivery is attempted; a store
// failure skips the event and leaves registry state untouched.
func (c *Client) handleSendMessage(ctx context.Context, ev SendMessageEvent) {
	msg, err := c.store.CreateMessage(ctx, ev.ChatID, c.userID, ev.Text)
	if err != nil {
		c.log.Error("persist message", "user_id", c.userID, "chat_id", ev.ChatID, "error", err)
		return
	}

	payload, err := json.Marshal(NewMessageBroadcast(msg))
	if err != nil {
		c.log.Error("encode message broadcast", "message_id", msg.ID, "error", err)
		return
	}
	c.registry.Broadcast(msg.ChatID, payload)
}

// handleReadReceipt flips the read flag of an existing message and notifies
// the chat. Unknown message ids are silently ignored.
func (c *Client) handleReadReceipt(ctx context.Context, ev ReadReceiptEvent) {
	msg, err := c.store.MessageByID(ctx, ev.MessageID)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		c.log.Error("load message", "user_id", c.userID, "message_id", ev.MessageID, "error", err)
		return
	}

	if _, err := c.store.MarkMessageRead(ctx, msg.ID); err != nil {
		c.log.Error("mark message read", "message_id", msg.ID, "error", err)
		return
	}
	c.registry.SendReadReceipt(msg.ID, msg.ChatID, c.userID)
}

// WritePump pumps queued frames to the peer and keeps the connection alive
// with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
