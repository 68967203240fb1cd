// Package notify delivers billing events to users in real time.
//
// Producers publish typed events through a Publisher. The Hub keeps the live
// connections of this instance; RedisBridge carries events between instances;
// EmailPublisher mails the events that matter offline. Delivery is best
// effort: an event for a user without a live connection is dropped and the
// client catches up by polling its subscription state.
package notify
