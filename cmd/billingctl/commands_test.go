package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/svc/plan"
)

func TestSweepArgs(t *testing.T) {
	t.Parallel()

	for _, arg := range []string{"trials", "trial-reminders", "renewals", "expirations", "all"} {
		assert.NoError(t, sweepCmd.Args(sweepCmd, []string{arg}), arg)
	}
	assert.Error(t, sweepCmd.Args(sweepCmd, []string{"refunds"}))
	assert.Error(t, sweepCmd.Args(sweepCmd, nil))
}

func TestSweepTableMatchesValidArgs(t *testing.T) {
	t.Parallel()

	names := make([]string, 0, len(sweeps))
	for _, s := range sweeps {
		names = append(names, s.name)
	}
	assert.ElementsMatch(t, names, sweepCmd.ValidArgs[:len(sweepCmd.ValidArgs)-1])
	assert.Equal(t, "trials", sweeps[0].name)
}

func TestSeedRejectsMissingFile(t *testing.T) {
	t.Parallel()

	err := runSeed(seedCmd, []string{"testdata/missing.yaml"})
	require.ErrorIs(t, err, plan.ErrInvalidSeed)
}
