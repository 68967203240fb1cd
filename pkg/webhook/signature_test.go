package webhook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/hostelkit/pkg/webhook"
)

func TestVerify(t *testing.T) {
	t.Parallel()

	const secret = "whsec_test"
	payload := []byte(`{"event":"payment.captured","payload":{}}`)
	sig := webhook.Sign(secret, payload)

	tests := []struct {
		name      string
		secret    string
		payload   []byte
		signature string
		wantErr   error
	}{
		{name: "valid", secret: secret, payload: payload, signature: sig},
		{name: "uppercase hex", secret: secret, payload: payload, signature: upper(sig)},
		{name: "wrong secret", secret: "other", payload: payload, signature: sig, wantErr: webhook.ErrInvalidSignature},
		{name: "reformatted body", secret: secret, payload: []byte(`{"payload":{},"event":"payment.captured"}`), signature: sig, wantErr: webhook.ErrInvalidSignature},
		{name: "not hex", secret: secret, payload: payload, signature: "zz", wantErr: webhook.ErrInvalidSignature},
		{name: "missing signature", secret: secret, payload: payload, wantErr: webhook.ErrMissingSignature},
		{name: "missing secret", payload: payload, signature: sig, wantErr: webhook.ErrMissingSecret},
		{name: "empty payload", secret: secret, signature: sig, wantErr: webhook.ErrEmptyPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := webhook.Verify(tt.secret, tt.payload, tt.signature)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 32
		}
	}
	return string(b)
}
