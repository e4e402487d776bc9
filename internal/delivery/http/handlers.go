// Package http exposes the REST and WebSocket endpoints.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/ndenisov/chatd/internal/delivery/ws"
	"github.com/ndenisov/chatd/internal/storage"
	"github.com/ndenisov/chatd/internal/usecase"
)

// Handler carries the dependencies of every endpoint.
type Handler struct {
	users    *usecase.UserService
	chats    *usecase.ChatService
	registry *ws.Registry
	store    ws.MessageStore
	upgrader websocket.Upgrader
	log      *slog.Logger

	maxMessageSize int64
}

// NewHandler creates a Handler. allowedOrigins controls the WebSocket origin
// check; "*" allows any origin.
func NewHandler(users *usecase.UserService, chats *usecase.ChatService, registry *ws.Registry, store ws.MessageStore, allowedOrigins []string, maxMessageSize int64, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		users:          users,
		chats:          chats,
		registry:       registry,
		store:          store,
		log:            log,
		maxMessageSize: maxMessageSize,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), allowedOrigins)
		},
	}
	return h
}

// originAllowed checks the origin against the allowed list. An empty origin
// (same-origin or non-browser clients) is always allowed.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	for _, candidate := range allowed {
		if candidate == "*" || candidate == origin {
			return true
		}
	}
	return false
}

// HandleRoot serves the welcome payload.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to chatd API"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encode response", "error", err)
	}
}

// respondDetail writes an error payload in the {"detail": ...} shape.
func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// respondServiceError maps service-level failures to HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		respondDetail(w, http.StatusUnprocessableEntity, validationErrs.Error())
	case errors.Is(err, usecase.ErrUsernameTaken),
		errors.Is(err, usecase.ErrEmailTaken):
		respondDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, usecase.ErrAccessDenied):
		respondDetail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, usecase.ErrNotCreator):
		respondDetail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respondDetail(w, http.StatusNotFound, "not found")
	default:
		respondDetail(w, http.StatusInternalServerError, "internal server error")
	}
}
