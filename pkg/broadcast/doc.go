// Package broadcast fans messages out to in-process subscribers.
//
// Broadcaster delivers each message to every current subscriber without
// blocking: a subscriber whose buffer is full misses the message. Registry
// keys broadcasters (for example by user id), creates them on first
// subscription and lets a periodic Sweep drop keys nobody listens to.
package broadcast
