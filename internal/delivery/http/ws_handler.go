package http

import (
	"context"
	"net/http"

	"github.com/ndenisov/chatd/internal/delivery/ws"
)

// HandleWebSocket upgrades the connection and runs the session loop for the
// user named in the path. The user's group memberships are hydrated into the
// registry before the first event can arrive.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.chats.HydrateMembership(r.Context(), userID); err != nil {
		h.log.Error("hydrate membership", "user_id", userID, "error", err)
		respondDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := ws.NewClient(h.registry, conn, userID, h.store, h.log)
	client.SetMaxMessageSize(h.maxMessageSize)
	h.registry.Connect(userID, client)

	h.log.Info("websocket connected", "user_id", userID)

	// The request context ends with this handler; the session outlives it.
	go client.WritePump()
	client.ReadPump(context.Background())

	h.log.Info("websocket disconnected", "user_id", userID)
}
