package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/apresai/shortsmith/internal/apikey"
)

// authContextKey is the context key for the authenticated identity.
type authContextKey struct{}

// WithIdentity stores the caller in ctx.
func WithIdentity(ctx context.Context, id apikey.Identity) context.Context {
	return context.WithValue(ctx, authContextKey{}, id)
}

// IdentityFromContext returns the caller stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (apikey.Identity, bool) {
	id, ok := ctx.Value(authContextKey{}).(apikey.Identity)
	return id, ok
}

type keyValidator interface {
	Validate(ctx context.Context, header string) (*apikey.Identity, error)
	Touch(ctx context.Context, id string) error
}

// requireAPIKey rejects requests without a valid bearer key and stores the
// caller's identity in the request context.
func requireAPIKey(next http.Handler, keys keyValidator, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, err := keys.Validate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			log.WarnContext(r.Context(), "Auth failed", "error", err)
			status := http.StatusUnauthorized
			if errors.Is(err, apikey.ErrInactive) {
				status = http.StatusForbidden
			}
			writeRPCError(w, status, "Invalid API key")
			return
		}

		go func(keyID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := keys.Touch(ctx, keyID); err != nil {
				log.Warn("Failed to update lastUsedAt", "key_id", keyID, "error", err)
			}
		}(ident.KeyID)

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *ident)))
	})
}

func writeRPCError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      nil,
		"error":   map[string]any{"code": -32001, "message": message},
	})
}
