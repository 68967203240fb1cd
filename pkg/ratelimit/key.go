package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/dmitrymomot/hostelkit/pkg/clientip"
)

// maxKeyLength bounds storage keys; longer keys are hashed.
const maxKeyLength = 64

// KeyFunc identifies the caller of a request. An empty key skips limiting.
type KeyFunc func(*http.Request) string

// ClientIP keys by the address resolved by clientip.Middleware, falling back
// to the request headers.
func ClientIP(r *http.Request) string {
	if ip := clientip.GetIPFromContext(r.Context()); ip != "" {
		return ip
	}
	return clientip.GetIP(r)
}

// Path keys by the request path.
func Path(r *http.Request) string { return r.URL.Path }

// Composite joins the non-empty keys of fns.
func Composite(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}
		combined := strings.Join(parts, ":")
		if len(combined) > maxKeyLength {
			sum := sha256.Sum256([]byte(combined))
			return hex.EncodeToString(sum[:16])
		}
		return combined
	}
}
