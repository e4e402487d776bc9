package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ndenisov/chatd/internal/domain"
)

// Inbound and outbound event type tags.
const (
	EventTypeMessage     = "message"
	EventTypeReadReceipt = "read_receipt"
)

var errUnknownEventType = errors.New("ws: unknown event type")

// InboundEvent is one decoded client event: exactly one of the concrete
// event types below.
type InboundEvent interface {
	isInboundEvent()
}

// SendMessageEvent asks the server to persist and fan out a new message.
type SendMessageEvent struct {
	ChatID int64
	Text   string
}

// ReadReceiptEvent marks a message as read and notifies the chat.
type ReadReceiptEvent struct {
	MessageID int64
}

func (SendMessageEvent) isInboundEvent() {}
func (ReadReceiptEvent) isInboundEvent() {}

// rawInbound mirrors the flat wire shape; pointers distinguish absent fields
// from zero values.
type rawInbound struct {
	Type      string  `json:"type"`
	ChatID    *int64  `json:"chat_id"`
	Text      *string `json:"text"`
	MessageID *int64  `json:"message_id"`
}

// DecodeInbound parses one wire frame into a typed event, validating that
// the fields required by its type are present.
func DecodeInbound(data []byte) (InboundEvent, error) {
	var raw rawInbound
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch raw.Type {
	case EventTypeMessage:
		if raw.ChatID == nil {
			return nil, fmt.Errorf("message event: missing chat_id")
		}
		if raw.Text == nil {
			return nil, fmt.Errorf("message event: missing text")
		}
		return SendMessageEvent{ChatID: *raw.ChatID, Text: *raw.Text}, nil
	case EventTypeReadReceipt:
		if raw.MessageID == nil {
			return nil, fmt.Errorf("read_receipt event: missing message_id")
		}
		return ReadReceiptEvent{MessageID: *raw.MessageID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownEventType, raw.Type)
	}
}

// MessageBroadcast is the outbound frame fanned out after a message is
// persisted. All fields come from the stored record.
type MessageBroadcast struct {
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	ChatID    int64  `json:"chat_id"`
	SenderID  int64  `json:"sender_id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	IsRead    bool   `json:"is_read"`
}

// NewMessageBroadcast builds the outbound frame for a persisted message.
func NewMessageBroadcast(msg domain.Message) MessageBroadcast {
	return MessageBroadcast{
		Type:      EventTypeMessage,
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
		IsRead:    msg.IsRead,
	}
}

// ReadReceiptBroadcast is the outbound frame fanned out when a message is
// marked read. Timestamp is captured at construction time in UTC.
type ReadReceiptBroadcast struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
	ChatID    int64  `json:"chat_id"`
	ReaderID  int64  `json:"reader_id"`
	Timestamp string `json:"timestamp"`
}

// NewReadReceiptBroadcast builds the outbound read-receipt frame.
func NewReadReceiptBroadcast(messageID, chatID, readerID int64) ReadReceiptBroadcast {
	return ReadReceiptBroadcast{
		Type:      EventTypeReadReceipt,
		MessageID: messageID,
		ChatID:    chatID,
		ReaderID:  readerID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
