// Package storage defines the persistence contracts consumed by the
// services and the WebSocket session loop. Implementations live in
// subpackages (currently sqlite).
package storage

import (
	"context"
	"errors"

	"github.com/ndenisov/chatd/internal/domain"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists is returned on unique constraint violations.
	ErrAlreadyExists = errors.New("storage: already exists")
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, hashedPassword string) (domain.User, error)
	UserByID(ctx context.Context, id int64) (domain.User, error)
	UserByUsername(ctx context.Context, username string) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
}

// ChatStore persists conversations.
type ChatStore interface {
	CreateChat(ctx context.Context, name string, chatType domain.ChatType) (domain.Chat, error)
	ChatByID(ctx context.Context, id int64) (domain.Chat, error)
	// HasAccess reports whether userID may read chatID. Group chats require
	// group membership; private chats are open to any authenticated user.
	HasAccess(ctx context.Context, chatID, userID int64) (bool, error)
}

// GroupStore persists group metadata and membership.
type GroupStore interface {
	CreateGroup(ctx context.Context, chatID, creatorID int64, name string) (domain.Group, error)
	GroupByID(ctx context.Context, id int64) (domain.Group, error)
	AddGroupMember(ctx context.Context, groupID, userID int64) error
	RemoveGroupMember(ctx context.Context, groupID, userID int64) error
	GroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	// GroupChatIDsForUser returns the chat ids of every group userID belongs
	// to, used to seed the connection registry on connect.
	GroupChatIDsForUser(ctx context.Context, userID int64) ([]int64, error)
}

// MessageStore persists messages and their read state.
type MessageStore interface {
	CreateMessage(ctx context.Context, chatID, senderID int64, text string) (domain.Message, error)
	MessageByID(ctx context.Context, id int64) (domain.Message, error)
	ChatMessages(ctx context.Context, chatID int64, limit, offset int) ([]domain.Message, error)
	MarkMessageRead(ctx context.Context, id int64) (domain.Message, error)
}

// Store aggregates every persistence concern behind one handle.
type Store interface {
	UserStore
	ChatStore
	GroupStore
	MessageStore
	Close() error
}
