// Package sanitizer normalises free-text input before it is validated and
// stored: plan names, upgrade request messages, room numbers and bed labels.
//
// Helpers are plain func(string) string values so they compose:
//
//	clean := sanitizer.Compose(sanitizer.RemoveControlChars, sanitizer.SingleLine)
//	name := clean(input)
package sanitizer
