// Package httpserver runs an http.Server until its context is cancelled and
// then drains in-flight requests within the configured shutdown timeout.
//
// Signal handling belongs to the caller, typically through
// signal.NotifyContext, so the server composes with other long-running
// components under one errgroup.
package httpserver
