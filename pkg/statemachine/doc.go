// Package statemachine describes finite state machines as immutable,
// concurrency-safe transition tables.
//
// A Machine holds no current state. Callers persist the state themselves
// (for example on a database record) and ask the machine for the next state:
//
//	m := statemachine.New(
//		statemachine.WithTransition(Trial, Active, Pay),
//		statemachine.WithTransition(Active, Expired, Lapse,
//			statemachine.WithGuard(pastEndDate)),
//	)
//	next, err := m.Next(ctx, sub.Status, Pay, sub)
//
// Next returns *ErrNoTransitionAvailable when the table has no entry for the
// state and event, and *ErrTransitionRejected when entries exist but every
// guard declined.
package statemachine
