// Package ws implements the real-time core: the connection registry that
// tracks live sockets and chat membership, and the per-connection session
// loop that drives persistence and fan-out.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Registry is the single source of truth for who is online and who belongs
// to which chat, and the only component that pushes frames onto live
// connections. One instance is shared by every session and by the chat
// management handlers.
type Registry struct {
	mu          sync.RWMutex
	conns       map[int64]*Client
	chatMembers map[int64]map[int64]struct{}
	log         *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		conns:       make(map[int64]*Client),
		chatMembers: make(map[int64]map[int64]struct{}),
		log:         log,
	}
}

// Connect records client as the live connection for userID. A prior
// connection for the same user is closed and replaced; there is no
// multi-device fan-out.
func (r *Registry) Connect(userID int64, client *Client) {
	r.mu.Lock()
	prev := r.conns[userID]
	r.conns[userID] = client
	r.mu.Unlock()

	if prev != nil && prev != client {
		r.log.Info("superseding live connection", "user_id", userID)
		prev.closeConn()
	}
}

// Disconnect removes the live connection entry for userID, but only if it
// still belongs to client: the deferred cleanup of a superseded session must
// not evict its replacement. No-op if absent.
func (r *Registry) Disconnect(userID int64, client *Client) {
	r.mu.Lock()
	if r.conns[userID] == client {
		delete(r.conns, userID)
	}
	r.mu.Unlock()
}

// IsOnline reports whether userID has a live connection.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// AddMember records userID as a member of chatID. Idempotent.
func (r *Registry) AddMember(chatID, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.chatMembers[chatID]
	if !ok {
		members = make(map[int64]struct{})
		r.chatMembers[chatID] = members
	}
	members[userID] = struct{}{}
}

// RemoveMember removes userID from chatID. No-op if absent.
func (r *Registry) RemoveMember(chatID, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chatMembers[chatID], userID)
}

// Members returns the current member set of chatID.
func (r *Registry) Members(chatID int64) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]int64, 0, len(r.chatMembers[chatID]))
	for userID := range r.chatMembers[chatID] {
		members = append(members, userID)
	}
	return members
}

// Broadcast delivers payload to every member of chatID that has a live
// connection; offline members are skipped. The recipient set is snapshotted
// under the read lock, then sends proceed outside it so a slow recipient
// cannot block registry mutation. A failed send is logged and never aborts
// the remaining fan-out.
func (r *Registry) Broadcast(chatID int64, payload []byte) {
	r.mu.RLock()
	recipients := make([]*Client, 0, len(r.chatMembers[chatID]))
	for userID := range r.chatMembers[chatID] {
		if client, ok := r.conns[userID]; ok {
			recipients = append(recipients, client)
		}
	}
	r.mu.RUnlock()

	for _, client := range recipients {
		if err := client.Send(payload); err != nil {
			r.log.Warn("broadcast delivery failed",
				"chat_id", chatID, "user_id", client.userID, "error", err)
		}
	}
}

// SendReadReceipt fans out a read-receipt frame for messageID to every live
// member of chatID.
func (r *Registry) SendReadReceipt(messageID, chatID, readerID int64) {
	payload, err := json.Marshal(NewReadReceiptBroadcast(messageID, chatID, readerID))
	if err != nil {
		r.log.Error("encode read receipt", "message_id", messageID, "error", err)
		return
	}
	r.Broadcast(chatID, payload)
}
