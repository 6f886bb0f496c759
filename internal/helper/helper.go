package helper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash8 returns a short stable fingerprint used to log emails without exposing them.
func Hash8(s string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(s)))
	return hex.EncodeToString(sum[:8])
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type reqIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reqIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey{}).(string)
	return id
}
