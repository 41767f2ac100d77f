// Package auth provides API key authentication for the HTTP API.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// APIKeyHeader is the header carrying the API key
	APIKeyHeader = "X-API-Key"

	clientContextKey contextKey = "client"
	clientSlotKey    contextKey = "client_slot"
)

// Client identifies the holder of an accepted API key.
type Client struct {
	Name string
}

type keyEntry struct {
	digest [sha256.Size]byte
	client Client
}

// APIKeyAuth validates API keys against a fixed set.
type APIKeyAuth struct {
	keys []keyEntry
}

type clientSlot struct {
	client Client
	set    bool
}

// NewAPIKeyAuth builds an authenticator from entries of the form "name=key"
// or a bare "key" (named client-N). Blank entries are ignored.
func NewAPIKeyAuth(entries []string) *APIKeyAuth {
	a := &APIKeyAuth{}
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, key, ok := strings.Cut(entry, "=")
		if !ok {
			name, key = "", entry
		}
		name, key = strings.TrimSpace(name), strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if name == "" {
			name = "client-" + strconv.Itoa(i+1)
		}
		a.keys = append(a.keys, keyEntry{digest: sha256.Sum256([]byte(key)), client: Client{Name: name}})
	}
	return a
}

// Enabled reports whether any key is configured.
func (a *APIKeyAuth) Enabled() bool {
	return len(a.keys) > 0
}

// Authenticate returns the client owning key.
func (a *APIKeyAuth) Authenticate(key string) (Client, bool) {
	digest := sha256.Sum256([]byte(key))
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare(digest[:], k.digest[:]) == 1 {
			return k.client, true
		}
	}
	return Client{}, false
}

// Middleware rejects requests without a valid key. With no keys configured
// it passes every request through.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		key := extractAPIKey(r)
		if key == "" {
			unauthorized(w, "missing API key")
			return
		}
		client, ok := a.Authenticate(key)
		if !ok {
			unauthorized(w, "invalid API key")
			return
		}

		if slot, ok := r.Context().Value(clientSlotKey).(*clientSlot); ok {
			slot.client, slot.set = client, true
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientContextKey, client)))
	})
}

// extractAPIKey reads the key header, falling back to a Bearer token.
func extractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="freightquote"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// WithClientSlot returns a context through which a client authenticated
// further down the handler chain is visible to ClientFromContext.
func WithClientSlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, clientSlotKey, &clientSlot{})
}

// ClientFromContext extracts the authenticated client from context
func ClientFromContext(ctx context.Context) (Client, bool) {
	if c, ok := ctx.Value(clientContextKey).(Client); ok {
		return c, true
	}
	if slot, ok := ctx.Value(clientSlotKey).(*clientSlot); ok && slot.set {
		return slot.client, true
	}
	return Client{}, false
}
