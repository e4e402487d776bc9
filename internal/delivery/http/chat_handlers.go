package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ndenisov/chatd/internal/domain"
	"github.com/ndenisov/chatd/internal/middleware"
	"github.com/ndenisov/chatd/internal/usecase"
)

// HandleCreateChat creates a conversation.
func (h *Handler) HandleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	chat, err := h.chats.CreateChat(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, chat)
}

// HandleCreateGroup creates a group chat owned by the requester.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respondDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req usecase.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.chats.CreateGroup(r.Context(), req, user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

// HandleAddGroupMember adds a user to a group. Creator only.
func (h *Handler) HandleAddGroupMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respondDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	groupID, err := pathID(r, "group_id")
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		respondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.chats.AddGroupMember(r.Context(), groupID, req.UserID, user.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "member added"})
}

// HandleRemoveGroupMember removes a user from a group. Creator only.
func (h *Handler) HandleRemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respondDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	groupID, err := pathID(r, "group_id")
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid group id")
		return
	}
	userID, err := pathID(r, "user_id")
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.chats.RemoveGroupMember(r.Context(), groupID, userID, user.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "member removed"})
}

// HandleHistory returns one page of a chat's messages.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respondDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	chatID, err := pathID(r, "chat_id")
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	messages, err := h.chats.History(r.Context(), chatID, limit, offset, user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	respondJSON(w, http.StatusOK, messages)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
