// Package payment reconciles payment gateway webhooks with subscriptions.
//
// A Gateway authenticates a delivery over the exact bytes received and
// decodes it into a Notification. The order metadata this system attached
// when creating the order is decoded into an Intent: a subscription
// purchase, a capacity addon, or a tenant charge that billing only
// acknowledges.
//
// The Reconciler applies captured payments through the subscription engine,
// which claims the (order id, payment id) pair before changing anything, so
// replays and out-of-order duplicates are answered with 200 and change
// nothing. Notifications and the raw archive run on an async.Runner after
// the response is decided and never undo an applied payment.
package payment
