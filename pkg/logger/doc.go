// Package logger builds the service-wide *slog.Logger.
//
// New applies functional options (format, level, static attributes, context
// extractors) and wraps the resulting handler with a decorator that pulls
// request-scoped values such as the request id out of context.Context on
// every record.
//
// Attribute helpers in attr.go keep key names consistent across packages:
//
//	log.WarnContext(ctx, "webhook signature rejected",
//	    logger.Component("payment.webhook"),
//	    logger.Gateway("razorpay"),
//	    logger.Error(err),
//	)
//
// Helpers that take an error or an identifier return an empty slog.Attr for
// nil or empty input, so callers never need a guard.
package logger
