// Package email sends transactional email.
//
// Postmark delivers through the Postmark API. DevSender writes each message
// to a directory instead, for local development.
package email
