package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/tillhq/till/internal/domain/auth"
)

// TerminalKeyHeader carries the raw terminal key on mutating requests.
const TerminalKeyHeader = "X-Terminal-Key"

// RequireTerminalKey returns a middleware that authenticates requests via the
// peppered SHA-256 hash of the terminal key header, with a constant-time
// comparison against the stored hash.
func RequireTerminalKey(keys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(TerminalKeyHeader)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "terminal key required")
				return
			}

			hash := auth.HashKey(pepper, key)
			info, err := keys.FindByHash(r.Context(), hash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Guards against a repository returning a stale or mismatched row.
			computed, err1 := hex.DecodeString(hash)
			stored, err2 := hex.DecodeString(info.KeyHash)
			if err1 != nil || err2 != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
