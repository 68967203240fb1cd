// Package webhook verifies inbound webhook signatures.
//
// Gateways sign the exact bytes they send with HMAC-SHA256 and put the hex
// digest in a header. Verification must run over the raw request body, never
// over a re-serialised copy, because JSON encoders do not preserve key order
// or whitespace.
package webhook
