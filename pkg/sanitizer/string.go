package sanitizer

import (
	"strings"
	"unicode"
)

// TrimToLower trims and lowercases s.
func TrimToLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MaxLength truncates s to maxLen runes.
func MaxLength(maxLen int) func(string) string {
	return func(s string) string {
		if maxLen <= 0 {
			return ""
		}
		runes := []rune(s)
		if len(runes) <= maxLen {
			return s
		}
		return string(runes[:maxLen])
	}
}

// RemoveControlChars drops control characters except newlines and tabs.
func RemoveControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// RemoveExtraWhitespace collapses whitespace runs inside each line and trims
// the result. Line breaks are kept.
func RemoveExtraWhitespace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SingleLine joins every line with single spaces.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
