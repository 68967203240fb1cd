package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/hostelkit/pkg/sanitizer"
)

func TestCompose(t *testing.T) {
	t.Parallel()

	clean := sanitizer.Compose(sanitizer.RemoveControlChars, sanitizer.SingleLine, sanitizer.MaxLength(12))
	assert.Equal(t, "Green Valley", clean("  Green\x00 \n Valley PG  "))
	assert.Equal(t, "abc", sanitizer.Apply(" ABC ", sanitizer.TrimToLower))
}

func TestRemoveExtraWhitespace(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "need 20 more beds\nfor the new wing", sanitizer.RemoveExtraWhitespace("  need  20 more\tbeds \r\n for   the new wing \n"))
}

func TestMaxLength(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "कमरा", sanitizer.MaxLength(4)("कमरा१०१"))
	assert.Equal(t, "", sanitizer.MaxLength(0)("x"))
}

func TestEmail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "owner@hostel.in", sanitizer.NormalizeEmail(" Owner@Hostel.IN "))
	assert.Equal(t, "hostel.in", sanitizer.ExtractEmailDomain("Owner@Hostel.IN"))
	assert.Equal(t, "", sanitizer.ExtractEmailDomain("owner@"))
	assert.Equal(t, "", sanitizer.ExtractEmailDomain("owner"))
	assert.Equal(t, "hostel.in", sanitizer.NormalizeDomain(" @Hostel.in"))
}

func TestCollections(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"A", "B"}, sanitizer.SplitAny(" A ; |B;", ";|"))
	assert.Nil(t, sanitizer.CleanStringSlice(nil))
	assert.Equal(t, []string{"a", "b"}, sanitizer.Deduplicate([]string{"a", "b", "a"}))
}
