// Package billing holds the vocabulary shared by the billing services:
// money in minor units, coded domain errors and the clock abstraction.
//
// Domain failures are *Error values carrying a stable machine code and the
// HTTP status they map to. Infrastructure failures are joined with
// ErrStorage, and IsTransient reports whether retrying the same call later
// may succeed:
//
//	if err := store.Save(ctx, sub); err != nil {
//		return errors.Join(billing.ErrStorage, err)
//	}
package billing
