// Package async runs fire-and-forget side effects such as notifications and
// payload archiving outside the request path.
//
// Tasks are detached from the caller's cancellation, bounded by a timeout,
// protected against panics and tracked so shutdown can drain them:
//
//	runner := async.NewRunner(async.WithLogger(log))
//	runner.Go(ctx, "payment_success_event", func(ctx context.Context) error {
//		return publisher.Publish(ctx, event)
//	})
//	defer runner.Wait(shutdownCtx)
//
// Future covers the rarer case where the caller needs the result later.
package async
