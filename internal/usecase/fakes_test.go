package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ndenisov/chatd/internal/domain"
	"github.com/ndenisov/chatd/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory storage.Store for service tests.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]domain.User
	chats    map[int64]domain.Chat
	groups   map[int64]domain.Group
	members  map[int64]map[int64]bool // group id -> user id set
	messages map[int64]domain.Message
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]domain.User),
		chats:    make(map[int64]domain.Chat),
		groups:   make(map[int64]domain.Group),
		members:  make(map[int64]map[int64]bool),
		messages: make(map[int64]domain.Message),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateUser(_ context.Context, username, email, hashedPassword string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username || user.Email == email {
			return domain.User{}, storage.ErrAlreadyExists
		}
	}
	user := domain.User{
		ID:             m.id(),
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC(),
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) UserByID(_ context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (m *memStore) UserByUsername(_ context.Context, username string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, storage.ErrNotFound
}

func (m *memStore) UserByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, storage.ErrNotFound
}

func (m *memStore) CreateChat(_ context.Context, name string, chatType domain.ChatType) (domain.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat := domain.Chat{ID: m.id(), Name: name, Type: chatType, CreatedAt: time.Now().UTC()}
	m.chats[chat.ID] = chat
	return chat, nil
}

func (m *memStore) ChatByID(_ context.Context, id int64) (domain.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[id]
	if !ok {
		return domain.Chat{}, storage.ErrNotFound
	}
	return chat, nil
}

func (m *memStore) HasAccess(ctx context.Context, chatID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return false, nil
	}
	if chat.Type != domain.ChatTypeGroup {
		return true, nil
	}
	for groupID, group := range m.groups {
		if group.ChatID == chatID {
			return m.members[groupID][userID], nil
		}
	}
	return false, nil
}

func (m *memStore) CreateGroup(_ context.Context, chatID, creatorID int64, name string) (domain.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group := domain.Group{ID: m.id(), ChatID: chatID, CreatorID: creatorID, Name: name, CreatedAt: time.Now().UTC()}
	m.groups[group.ID] = group
	return group, nil
}

func (m *memStore) GroupByID(_ context.Context, id int64) (domain.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.groups[id]
	if !ok {
		return domain.Group{}, storage.ErrNotFound
	}
	return group, nil
}

func (m *memStore) AddGroupMember(_ context.Context, groupID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[groupID] == nil {
		m.members[groupID] = make(map[int64]bool)
	}
	m.members[groupID][userID] = true
	return nil
}

func (m *memStore) RemoveGroupMember(_ context.Context, groupID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[groupID], userID)
	return nil
}

func (m *memStore) GroupMemberIDs(_ context.Context, groupID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for userID := range m.members[groupID] {
		ids = append(ids, userID)
	}
	return ids, nil
}

func (m *memStore) GroupChatIDsForUser(_ context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var chatIDs []int64
	for groupID, group := range m.groups {
		if m.members[groupID][userID] {
			chatIDs = append(chatIDs, group.ChatID)
		}
	}
	return chatIDs, nil
}

func (m *memStore) CreateMessage(_ context.Context, chatID, senderID int64, text string) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := domain.Message{ID: m.id(), ChatID: chatID, SenderID: senderID, Text: text, Timestamp: time.Now().UTC()}
	m.messages[msg.ID] = msg
	return msg, nil
}

func (m *memStore) MessageByID(_ context.Context, id int64) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return domain.Message{}, storage.ErrNotFound
	}
	return msg, nil
}

func (m *memStore) ChatMessages(_ context.Context, chatID int64, limit, offset int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var messages []domain.Message
	for id := int64(1); id <= m.nextID; id++ {
		if msg, ok := m.messages[id]; ok && msg.ChatID == chatID {
			messages = append(messages, msg)
		}
	}
	if offset >= len(messages) {
		return nil, nil
	}
	messages = messages[offset:]
	if limit < len(messages) {
		messages = messages[:limit]
	}
	return messages, nil
}

func (m *memStore) MarkMessageRead(_ context.Context, id int64) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return domain.Message{}, storage.ErrNotFound
	}
	msg.IsRead = true
	m.messages[id] = msg
	return msg, nil
}

func (m *memStore) Close() error { return nil }

// recordingRegistry captures membership writes from the services.
type recordingRegistry struct {
	mu      sync.Mutex
	members map[int64]map[int64]bool
}

func newRecordingRegistry() *recordingRegistry {
	return &recordingRegistry{members: make(map[int64]map[int64]bool)}
}

func (r *recordingRegistry) AddMember(chatID, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[chatID] == nil {
		r.members[chatID] = make(map[int64]bool)
	}
	r.members[chatID][userID] = true
}

func (r *recordingRegistry) RemoveMember(chatID, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[chatID], userID)
}

func (r *recordingRegistry) has(chatID, userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[chatID][userID]
}
