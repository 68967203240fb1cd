// Package clientip resolves the caller's address behind Cloudflare or a
// reverse proxy. The billing router keys webhook rate limits by it.
package clientip
