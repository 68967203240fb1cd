package jwt

import (
	"net/http"
	"strings"
)

// TokenExtractorFunc reads a raw token from a request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// BearerTokenExtractor reads "Authorization: Bearer <token>".
func BearerTokenExtractor(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

// QueryTokenExtractor reads the token from a query parameter. Browsers'
// EventSource cannot send headers, so the event stream relies on it.
func QueryTokenExtractor(param string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		token := r.URL.Query().Get(param)
		if token == "" {
			return "", ErrInvalidToken
		}
		return token, nil
	}
}

// FirstOf returns the token of the first extractor that finds one.
func FirstOf(extractors ...TokenExtractorFunc) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		for _, extract := range extractors {
			if token, err := extract(r); err == nil {
				return token, nil
			}
		}
		return "", ErrInvalidToken
	}
}
