// Package auth defines terminal authentication: each POS terminal holds a
// key whose peppered SHA-256 hash is registered server-side.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnknownKey is returned when no active terminal key matches a hash.
var ErrUnknownKey = errors.New("unknown terminal key")

// TerminalKey identifies a registered POS terminal.
type TerminalKey struct {
	ID      string
	KeyHash string
	Name    string
}

// Repository provides lookup of terminal keys by their hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*TerminalKey, error)
}

// HashKey computes the hex-encoded HMAC-SHA256 of a raw terminal key under
// the server pepper. The same function is used at seeding time and at
// request verification time.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
