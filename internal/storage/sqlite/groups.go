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

// CreateGroup inserts one group record bound to an existing chat.
func (s *Store) CreateGroup(ctx context.Context, chatID, creatorID int64, name string) (domain.Group, error) {
	createdAt := time.Now().UTC()
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO groups (chat_id, creator_id, name, created_at) VALUES (?, ?, ?, ?)`,
		chatID, creatorID, name, toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Group{}, storage.ErrAlreadyExists
		}
		return domain.Group{}, fmt.Errorf("create group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Group{}, fmt.Errorf("create group id: %w", err)
	}
	return domain.Group{
		ID:        id,
		ChatID:    chatID,
		CreatorID: creatorID,
		Name:      name,
		CreatedAt: createdAt,
	}, nil
}

// GroupByID returns one group by id.
func (s *Store) GroupByID(ctx context.Context, id int64) (domain.Group, error) {
	var group domain.Group
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, chat_id, creator_id, name, created_at FROM groups WHERE id = ?`, id,
	).Scan(&group.ID, &group.ChatID, &group.CreatorID, &group.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Group{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Group{}, fmt.Errorf("scan group: %w", err)
	}
	group.CreatedAt = fromMillis(createdAt)
	return group, nil
}

// AddGroupMember inserts one membership row. Adding an existing member is a
// no-op.
func (s *Store) AddGroupMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveGroupMember deletes one membership row. Removing an absent member is
// a no-op.
func (s *Store) RemoveGroupMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}

// GroupMemberIDs returns the user ids of every member of groupID.
func (s *Store) GroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	return s.scanIDs(ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id`, groupID)
}

// GroupChatIDsForUser returns the chat ids of every group userID belongs to.
func (s *Store) GroupChatIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return s.scanIDs(ctx,
		`SELECT g.chat_id FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = ? ORDER BY g.chat_id`, userID)
}

func (s *Store) scanIDs(ctx context.Context, query string, arg int64) ([]int64, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}
