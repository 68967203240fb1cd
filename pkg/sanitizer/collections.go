package sanitizer

import "strings"

// CleanStringSlice trims every entry and drops the empty ones.
func CleanStringSlice(slice []string) []string {
	if slice == nil {
		return nil
	}
	out := make([]string, 0, len(slice))
	for _, s := range slice {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitAny splits s on any rune of seps and cleans the parts.
func SplitAny(s, seps string) []string {
	return CleanStringSlice(strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	}))
}

// Deduplicate keeps the first occurrence of each value.
func Deduplicate[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	out := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
