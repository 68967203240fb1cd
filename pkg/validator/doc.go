// Package validator collects field-level validation failures.
//
// Rules are plain values pairing a check with the error reported when the
// check fails. Apply runs them all and returns Errors, so a caller sees every
// problem at once:
//
//	err := validator.Apply(
//		validator.Required("name", p.Name),
//		validator.Min("base_bed_count", p.BaseBedCount, 1),
//		validator.When(p.MaxBeds != nil, validator.Min("max_beds", deref(p.MaxBeds), p.BaseBedCount)),
//	)
//
// Each failure carries a Tag naming the violated constraint, which HTTP
// handlers forward as a machine-readable code.
package validator
