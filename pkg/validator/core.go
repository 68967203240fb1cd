package validator

import (
	"errors"
	"fmt"
	"strings"
)

// Numeric is any integer or float type.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ErrValidationFailed matches any Errors value with errors.Is.
var ErrValidationFailed = errors.New("validation failed")

// FieldError is a single failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag"`
}

// Errors is the set of failures produced by Apply.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) Is(target error) bool { return target == ErrValidationFailed }

// Has reports whether field has at least one failure.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Fields groups messages by field, the shape returned to API clients.
func (e Errors) Fields() map[string][]string {
	out := make(map[string][]string, len(e))
	for _, fe := range e {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}

// Tags lists the distinct constraint tags in order of appearance.
func (e Errors) Tags() []string {
	var tags []string
	seen := make(map[string]bool)
	for _, fe := range e {
		if fe.Tag != "" && !seen[fe.Tag] {
			seen[fe.Tag] = true
			tags = append(tags, fe.Tag)
		}
	}
	return tags
}

// Rule is a check plus the failure it reports.
type Rule struct {
	Check func() bool
	Error FieldError
}

// WithTag returns a copy of r reporting tag instead of its default.
func (r Rule) WithTag(tag string) Rule {
	r.Error.Tag = tag
	return r
}

// WithMessage returns a copy of r reporting msg.
func (r Rule) WithMessage(msg string) Rule {
	r.Error.Message = msg
	return r
}

// Apply runs every rule and returns Errors when any failed.
func Apply(rules ...Rule) error {
	var errs Errors
	for _, r := range rules {
		if r.Check != nil && !r.Check() {
			errs = append(errs, r.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Extract returns the Errors wrapped in err, or nil.
func Extract(err error) Errors {
	var errs Errors
	if errors.As(err, &errs) {
		return errs
	}
	return nil
}

// Check builds an ad-hoc rule.
func Check(field string, ok bool, tag, msg string) Rule {
	return Rule{Check: func() bool { return ok }, Error: FieldError{Field: field, Message: msg, Tag: tag}}
}

// When applies r only if cond holds.
func When(cond bool, r Rule) Rule {
	if !cond {
		return Rule{Check: func() bool { return true }}
	}
	return r
}

// Required rejects empty or whitespace-only strings.
func Required(field, value string) Rule {
	return Check(field, strings.TrimSpace(value) != "", "required", "is required")
}

// MaxLen rejects strings longer than n runes.
func MaxLen(field, value string, n int) Rule {
	return Check(field, len([]rune(value)) <= n, "max_length", fmt.Sprintf("must be at most %d characters", n))
}

// Min rejects values below floor.
func Min[T Numeric](field string, value, floor T) Rule {
	return Check(field, value >= floor, "min", fmt.Sprintf("must be at least %v", floor))
}

// Max rejects values above ceiling.
func Max[T Numeric](field string, value, ceiling T) Rule {
	return Check(field, value <= ceiling, "max", fmt.Sprintf("must be at most %v", ceiling))
}

// Range rejects values outside [lo, hi].
func Range[T Numeric](field string, value, lo, hi T) Rule {
	return Check(field, value >= lo && value <= hi, "range", fmt.Sprintf("must be between %v and %v", lo, hi))
}

// OneOf rejects values not in allowed.
func OneOf[T comparable](field string, value T, allowed ...T) Rule {
	ok := false
	for _, a := range allowed {
		if a == value {
			ok = true
			break
		}
	}
	return Check(field, ok, "one_of", fmt.Sprintf("must be one of %v", allowed))
}
