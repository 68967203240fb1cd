package validator_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("all rules pass", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.Required("name", "Starter"),
			validator.Min("beds", 10, 1),
			validator.Max("discount", 15, 100),
			validator.Range("branches", 2, 1, 5),
			validator.OneOf("cycle", "monthly", "monthly", "annual"),
			validator.MaxLen("name", "Starter", 64),
		)
		assert.NoError(t, err)
	})

	t.Run("collects every failure", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.Required("name", "  "),
			validator.Min("beds", 0, 1).WithTag("negative_count"),
			validator.OneOf("cycle", "weekly", "monthly", "annual"),
			validator.When(false, validator.Required("skipped", "")),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, validator.ErrValidationFailed)

		errs := validator.Extract(fmt.Errorf("wrapped: %w", err))
		require.Len(t, errs, 3)
		assert.True(t, errs.Has("name"))
		assert.False(t, errs.Has("skipped"))
		assert.Equal(t, []string{"required", "negative_count", "one_of"}, errs.Tags())
		assert.Equal(t, []string{"is required"}, errs.Fields()["name"])
	})

	t.Run("extract from unrelated error", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, validator.Extract(errors.New("other")))
	})
}
