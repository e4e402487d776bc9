package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndenisov/chatd/internal/domain"
)

func TestDecodeInbound_Message(t *testing.T) {
	event, err := DecodeInbound([]byte(`{"type":"message","chat_id":5,"text":"hi"}`))
	require.NoError(t, err)

	msg, ok := event.(SendMessageEvent)
	require.True(t, ok)
	assert.Equal(t, int64(5), msg.ChatID)
	assert.Equal(t, "hi", msg.Text)
}

func TestDecodeInbound_MessageEmptyTextIsValid(t *testing.T) {
	// Present-but-empty text is distinct from a missing field.
	event, err := DecodeInbound([]byte(`{"type":"message","chat_id":5,"text":""}`))
	require.NoError(t, err)
	assert.Equal(t, SendMessageEvent{ChatID: 5, Text: ""}, event)
}

func TestDecodeInbound_ReadReceipt(t *testing.T) {
	event, err := DecodeInbound([]byte(`{"type":"read_receipt","message_id":42}`))
	require.NoError(t, err)
	assert.Equal(t, ReadReceiptEvent{MessageID: 42}, event)
}

func TestDecodeInbound_Invalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"unknown type", `{"type":"typing"}`},
		{"missing type", `{"chat_id":5,"text":"hi"}`},
		{"message without chat_id", `{"type":"message","text":"hi"}`},
		{"message without text", `{"type":"message","chat_id":5}`},
		{"read_receipt without message_id", `{"type":"read_receipt"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestNewMessageBroadcast(t *testing.T) {
	stamp := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	event := NewMessageBroadcast(domain.Message{
		ID:        11,
		ChatID:    5,
		SenderID:  7,
		Text:      "hi",
		Timestamp: stamp,
	})

	assert.Equal(t, EventTypeMessage, event.Type)
	assert.Equal(t, "2026-03-14T15:09:26Z", event.Timestamp)
	assert.False(t, event.IsRead)
}
