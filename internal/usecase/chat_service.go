package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ndenisov/chatd/internal/domain"
	"github.com/ndenisov/chatd/internal/storage"
	"github.com/samber/lo"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

var (
	ErrAccessDenied = errors.New("access denied")
	ErrNotCreator   = errors.New("only the group creator can manage members")
)

// MembershipRegistry is the fan-out membership table kept by the real-time
// core. Chat management is its only write path besides hydration.
type MembershipRegistry interface {
	AddMember(chatID, userID int64)
	RemoveMember(chatID, userID int64)
}

// CreateChatRequest carries a chat creation payload. MemberIDs seeds the
// fan-out membership of the new chat; for private chats it should list both
// participants.
type CreateChatRequest struct {
	Name      string  `json:"name" validate:"max=50"`
	Type      string  `json:"type" validate:"required,oneof=private group"`
	MemberIDs []int64 `json:"member_ids"`
}

// CreateGroupRequest carries a group creation payload.
type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

// ChatService handles chat and group management and message history.
type ChatService struct {
	chats    storage.ChatStore
	groups   storage.GroupStore
	messages storage.MessageStore
	registry MembershipRegistry
	log      *slog.Logger
}

// NewChatService creates a ChatService.
func NewChatService(chats storage.ChatStore, groups storage.GroupStore, messages storage.MessageStore, registry MembershipRegistry, log *slog.Logger) *ChatService {
	if log == nil {
		log = slog.Default()
	}
	return &ChatService{
		chats:    chats,
		groups:   groups,
		messages: messages,
		registry: registry,
		log:      log,
	}
}

// CreateChat creates a conversation and registers its initial members for
// fan-out.
func (s *ChatService) CreateChat(ctx context.Context, req CreateChatRequest) (domain.Chat, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Chat{}, err
	}

	chat, err := s.chats.CreateChat(ctx, req.Name, domain.ChatType(req.Type))
	if err != nil {
		return domain.Chat{}, err
	}
	for _, userID := range lo.Uniq(req.MemberIDs) {
		s.registry.AddMember(chat.ID, userID)
	}
	return chat, nil
}

// CreateGroup creates a group chat with its group record, auto-adding the
// creator as the first member both in storage and in the fan-out registry.
func (s *ChatService) CreateGroup(ctx context.Context, req CreateGroupRequest, creatorID int64) (domain.Group, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Group{}, err
	}

	chat, err := s.chats.CreateChat(ctx, "", domain.ChatTypeGroup)
	if err != nil {
		return domain.Group{}, err
	}
	group, err := s.groups.CreateGroup(ctx, chat.ID, creatorID, req.Name)
	if err != nil {
		return domain.Group{}, err
	}
	if err := s.groups.AddGroupMember(ctx, group.ID, creatorID); err != nil {
		return domain.Group{}, fmt.Errorf("add creator: %w", err)
	}
	s.registry.AddMember(chat.ID, creatorID)

	s.log.Info("group created", "group_id", group.ID, "chat_id", chat.ID, "creator_id", creatorID)
	return group, nil
}

// AddGroupMember adds userID to the group, writing through to the fan-out
// registry. Only the group creator may manage membership.
func (s *ChatService) AddGroupMember(ctx context.Context, groupID, userID, requesterID int64) error {
	group, err := s.groups.GroupByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.CreatorID != requesterID {
		return ErrNotCreator
	}
	if err := s.groups.AddGroupMember(ctx, groupID, userID); err != nil {
		return err
	}
	s.registry.AddMember(group.ChatID, userID)
	return nil
}

// RemoveGroupMember removes userID from the group, writing through to the
// fan-out registry. Only the group creator may manage membership.
func (s *ChatService) RemoveGroupMember(ctx context.Context, groupID, userID, requesterID int64) error {
	group, err := s.groups.GroupByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.CreatorID != requesterID {
		return ErrNotCreator
	}
	if err := s.groups.RemoveGroupMember(ctx, groupID, userID); err != nil {
		return err
	}
	s.registry.RemoveMember(group.ChatID, userID)
	return nil
}

// History returns one chronological page of messages after checking the
// requester's access to the chat.
func (s *ChatService) History(ctx context.Context, chatID int64, limit, offset int, userID int64) ([]domain.Message, error) {
	ok, err := s.chats.HasAccess(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.messages.ChatMessages(ctx, chatID, limit, offset)
}

// HydrateMembership seeds the fan-out registry with the group chats userID
// belongs to. Called when a user connects so registry membership survives
// process restarts.
func (s *ChatService) HydrateMembership(ctx context.Context, userID int64) error {
	chatIDs, err := s.groups.GroupChatIDsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load group chats: %w", err)
	}
	for _, chatID := range chatIDs {
		s.registry.AddMember(chatID, userID)
	}
	return nil
}
