// Package auth verifies bearer tokens and resolves them to user ids. The
// default implementation is a static token table loaded from configuration;
// a real identity provider slots in behind the same interface.
package auth

import (
	"context"
	"strings"

	"github.com/nft-inventory/internal/apperr"
)

// Verifier resolves a bearer token to a user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// StaticVerifier verifies against a fixed token -> uid table.
type StaticVerifier struct {
	tokens map[string]string
}

// NewStaticVerifier parses a "token1:uid1,token2:uid2" table.
func NewStaticVerifier(table string) *StaticVerifier {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(table, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		tokens[parts[0]] = parts[1]
	}
	return &StaticVerifier{tokens: tokens}
}

// Verify implements Verifier.
func (v *StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", apperr.Unauthenticated("missing bearer token")
	}
	uid, ok := v.tokens[token]
	if !ok {
		return "", apperr.Unauthenticated("invalid bearer token")
	}
	return uid, nil
}

type contextKey string

const uidKey contextKey = "uid"

// WithUID stores the authenticated user id in the context.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, uidKey, uid)
}

// UID returns the authenticated user id from the context.
func UID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(uidKey).(string)
	return uid, ok && uid != ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
