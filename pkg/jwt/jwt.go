package jwt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	HeaderType      = "JWT"
	HeaderAlgorithm = "HS256"
)

// Header is the JOSE header.
type Header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// StandardClaims are the registered claims. Zero times are unset.
type StandardClaims struct {
	ID        string `json:"jti,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Issuer    string `json:"iss,omitempty"`
	Audience  string `json:"aud,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

// ValidAt checks the temporal claims at now.
func (c StandardClaims) ValidAt(now time.Time) error {
	ts := now.Unix()
	if c.ExpiresAt > 0 && ts > c.ExpiresAt {
		return ErrExpiredToken
	}
	if c.NotBefore > 0 && ts < c.NotBefore {
		return ErrInvalidToken
	}
	return nil
}

type timedClaims interface {
	ValidAt(now time.Time) error
}

// Service signs and verifies HS256 tokens.
type Service struct {
	key []byte
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for temporal checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service signing with key.
func New(key []byte, opts ...Option) (*Service, error) {
	if len(key) == 0 {
		return nil, ErrMissingSigningKey
	}
	s := &Service{key: key, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromString is New for string keys taken from configuration.
func NewFromString(key string, opts ...Option) (*Service, error) {
	return New([]byte(key), opts...)
}

// Generate signs claims.
func (s *Service) Generate(claims any) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}
	header, err := json.Marshal(Header{Type: HeaderType, Algorithm: HeaderAlgorithm})
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}
	body, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	payload := encode(header) + "." + encode(body)
	return payload + "." + s.sign(payload), nil
}

// Parse verifies token and decodes its claims into claims. Claims embedding
// StandardClaims get their expiry and not-before checked.
func (s *Service) Parse(token string, claims any) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrInvalidToken
	}
	if !hmac.Equal([]byte(parts[2]), []byte(s.sign(parts[0]+"."+parts[1]))) {
		return ErrInvalidSignature
	}

	raw, err := decode(parts[0])
	if err != nil {
		return fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	var header Header
	if err := json.Unmarshal(raw, &header); err != nil {
		return fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	if header.Algorithm != HeaderAlgorithm {
		return ErrUnexpectedSigningMethod
	}

	if raw, err = decode(parts[1]); err != nil {
		return fmt.Errorf("%w: claims: %v", ErrInvalidToken, err)
	}
	if err := json.Unmarshal(raw, claims); err != nil {
		return fmt.Errorf("%w: claims: %v", ErrInvalidToken, err)
	}
	if c, ok := claims.(timedClaims); ok {
		return c.ValidAt(s.now())
	}
	return nil
}

func (s *Service) sign(payload string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(payload))
	return encode(h.Sum(nil))
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
