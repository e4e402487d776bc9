package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndenisov/chatd/internal/domain"
	"github.com/ndenisov/chatd/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory MessageStore for session loop tests.
type fakeStore struct {
	messages  map[int64]domain.Message
	nextID    int64
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: make(map[int64]domain.Message), nextID: 1}
}

func (f *fakeStore) CreateMessage(_ context.Context, chatID, senderID int64, text string) (domain.Message, error) {
	if f.createErr != nil {
		return domain.Message{}, f.createErr
	}
	msg := domain.Message{
		ID:        f.nextID,
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	f.nextID++
	f.messages[msg.ID] = msg
	return msg, nil
}

func (f *fakeStore) MessageByID(_ context.Context, id int64) (domain.Message, error) {
	msg, ok := f.messages[id]
	if !ok {
		return domain.Message{}, storage.ErrNotFound
	}
	return msg, nil
}

func (f *fakeStore) MarkMessageRead(_ context.Context, id int64) (domain.Message, error) {
	msg, ok := f.messages[id]
	if !ok {
		return domain.Message{}, storage.ErrNotFound
	}
	msg.IsRead = true
	f.messages[id] = msg
	return msg, nil
}

func newSessionClient(registry *Registry, store MessageStore, userID int64) *Client {
	client := newTestClient(registry, userID)
	client.store = store
	return client
}

func TestClient_HandleSendMessage(t *testing.T) {
	registry := NewRegistry(testLogger())
	store := newFakeStore()

	sender := newSessionClient(registry, store, 7)
	peer := newSessionClient(registry, store, 8)
	registry.Connect(7, sender)
	registry.Connect(8, peer)
	registry.AddMember(5, 7)
	registry.AddMember(5, 8)

	sender.handleSendMessage(context.Background(), SendMessageEvent{ChatID: 5, Text: "hi"})

	frames := drain(peer)
	require.Len(t, frames, 1, "the other member must receive exactly one frame")

	var event MessageBroadcast
	require.NoError(t, json.Unmarshal(frames[0], &event))
	assert.Equal(t, EventTypeMessage, event.Type)
	assert.Equal(t, int64(1), event.ID)
	assert.Equal(t, int64(5), event.ChatID)
	assert.Equal(t, int64(7), event.SenderID)
	assert.Equal(t, "hi", event.Text)
	assert.False(t, event.IsRead)
	assert.NotEmpty(t, event.Timestamp)

	// The sender is a member too and gets its own echo.
	require.Len(t, drain(sender), 1)
}

func TestClient_HandleSendMessage_StoreFailure(t *testing.T) {
	registry := NewRegistry(testLogger())
	store := newFakeStore()
	store.createErr = errors.New("store unavailable")

	sender := newSessionClient(registry, store, 7)
	peer := newSessionClient(registry, store, 8)
	registry.Connect(7, sender)
	registry.Connect(8, peer)
	registry.AddMember(5, 7)
	registry.AddMember(5, 8)

	sender.handleSendMessage(context.Background(), SendMessageEvent{ChatID: 5, Text: "hi"})

	assert.Empty(t, drain(peer), "nothing is delivered when persistence fails")
	assert.True(t, registry.IsOnline(7), "a store outage must not corrupt registry state")
	assert.ElementsMatch(t, []int64{7, 8}, registry.Members(5))
}

func TestClient_HandleReadReceipt(t *testing.T) {
	registry := NewRegistry(testLogger())
	store := newFakeStore()

	reader := newSessionClient(registry, store, 8)
	author := newSessionClient(registry, store, 7)
	registry.Connect(7, author)
	registry.Connect(8, reader)
	registry.AddMember(5, 7)
	registry.AddMember(5, 8)

	msg, err := store.CreateMessage(context.Background(), 5, 7, "hi")
	require.NoError(t, err)

	reader.handleReadReceipt(context.Background(), ReadReceiptEvent{MessageID: msg.ID})

	stored, err := store.MessageByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)

	for _, member := range []*Client{author, reader} {
		frames := drain(member)
		require.Len(t, frames, 1, "each live member receives the receipt exactly once")

		var event ReadReceiptBroadcast
		require.NoError(t, json.Unmarshal(frames[0], &event))
		assert.Equal(t, msg.ID, event.MessageID)
		assert.Equal(t, int64(5), event.ChatID)
		assert.Equal(t, int64(8), event.ReaderID)
	}
}

func TestClient_HandleReadReceipt_UnknownMessage(t *testing.T) {
	registry := NewRegistry(testLogger())
	store := newFakeStore()

	reader := newSessionClient(registry, store, 8)
	registry.Connect(8, reader)
	registry.AddMember(5, 8)

	reader.handleReadReceipt(context.Background(), ReadReceiptEvent{MessageID: 404})

	assert.Empty(t, drain(reader), "unknown message ids produce zero broadcasts")
}

func TestClient_SendReportsFullBuffer(t *testing.T) {
	client := newTestClient(NewRegistry(testLogger()), 1)
	for i := 0; i < cap(client.send); i++ {
		require.NoError(t, client.Send([]byte("x")))
	}
	assert.ErrorIs(t, client.Send([]byte("overflow")), errSendBufferFull)
}

func TestClient_SendAfterCloseIsRefused(t *testing.T) {
	client := newTestClient(NewRegistry(testLogger()), 1)
	client.closeConn()
	assert.ErrorIs(t, client.Send([]byte("late")), errSessionClosed)
}

// dialLoopback opens a real websocket against a throwaway echo-less server so
// pump behavior can be exercised on a live transport.
func dialLoopback(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := serverConn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestClient_WritePumpStopsOnClose(t *testing.T) {
	registry := NewRegistry(testLogger())
	conn := dialLoopback(t)
	client := NewClient(registry, conn, 1, newFakeStore(), testLogger())

	stopped := make(chan struct{})
	go func() {
		client.WritePump()
		close(stopped)
	}()

	client.closeConn()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("write pump kept running after the session closed")
	}
}
