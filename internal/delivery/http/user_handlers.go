package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ndenisov/chatd/internal/middleware"
	"github.com/ndenisov/chatd/internal/usecase"
)

// HandleRegister creates a new account.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req usecase.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// HandleLogin exchanges form-encoded credentials for an access token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		respondDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	token, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			respondDetail(w, http.StatusUnauthorized, err.Error())
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, token)
}

// HandleMe returns the authenticated account.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respondDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
