package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ndenisov/chatd/internal/auth"
	"github.com/ndenisov/chatd/internal/domain"
)

type contextKey int

const userKey contextKey = iota

// UserSource resolves the account behind a validated token subject.
type UserSource interface {
	UserByUsername(ctx context.Context, username string) (domain.User, error)
}

// RequireAuth wraps a HandlerFunc with bearer-token authentication. The
// resolved user is stored in the request context; retrieve it with UserFrom.
func RequireAuth(tokens *auth.TokenIssuer, users UserSource, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(w, "not authenticated")
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			unauthorized(w, "could not validate credentials")
			return
		}

		user, err := users.UserByUsername(r.Context(), claims.Subject)
		if err != nil {
			unauthorized(w, "could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// UserFrom returns the authenticated user stored by RequireAuth.
func UserFrom(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
