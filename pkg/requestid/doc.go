// Package requestid tags every request with an identifier that is echoed in
// the X-Request-ID response header and attached to log records.
//
// Gateways send their own delivery ids. Passing those header names to New
// makes a webhook's log lines carry the id shown in the gateway dashboard.
package requestid
