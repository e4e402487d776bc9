package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndenisov/chatd/internal/domain"
	"github.com/ndenisov/chatd/internal/storage"
)

// CreateChat inserts one conversation record.
func (s *Store) CreateChat(ctx context.Context, name string, chatType domain.ChatType) (domain.Chat, error) {
	if !chatType.Valid() {
		return domain.Chat{}, fmt.Errorf("invalid chat type %q", chatType)
	}
	createdAt := time.Now().UTC()
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO chats (name, type, created_at) VALUES (?, ?, ?)`,
		sql.NullString{String: name, Valid: name != ""}, string(chatType), toMillis(createdAt),
	)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("create chat: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Chat{}, fmt.Errorf("create chat id: %w", err)
	}
	return domain.Chat{ID: id, Name: name, Type: chatType, CreatedAt: createdAt}, nil
}

// ChatByID returns one chat by id.
func (s *Store) ChatByID(ctx context.Context, id int64) (domain.Chat, error) {
	var chat domain.Chat
	var name sql.NullString
	var chatType string
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, type, created_at FROM chats WHERE id = ?`, id,
	).Scan(&chat.ID, &name, &chatType, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Chat{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Chat{}, fmt.Errorf("scan chat: %w", err)
	}
	chat.Name = name.String
	chat.Type = domain.ChatType(chatType)
	chat.CreatedAt = fromMillis(createdAt)
	return chat, nil
}

// HasAccess reports whether userID may read chatID. Unknown chats yield
// false without an error; group chats require membership; private chats are
// open to any authenticated user.
func (s *Store) HasAccess(ctx context.Context, chatID, userID int64) (bool, error) {
	chat, err := s.ChatByID(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if chat.Type != domain.ChatTypeGroup {
		return true, nil
	}
	var count int
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM group_members gm
		 JOIN groups g ON g.id = gm.group_id
		 WHERE g.chat_id = ? AND gm.user_id = ?`, chatID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check group membership: %w", err)
	}
	return count > 0, nil
}
