package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrollmentStatusTransitions(t *testing.T) {
	assert.True(t, EnrollmentInProgress.CanTransition(EnrollmentCompleted))
	assert.True(t, EnrollmentInProgress.CanTransition(EnrollmentPassed))
	assert.True(t, EnrollmentCompleted.CanTransition(EnrollmentPassed))

	// Status only moves forward.
	assert.False(t, EnrollmentCompleted.CanTransition(EnrollmentInProgress))
	assert.False(t, EnrollmentPassed.CanTransition(EnrollmentInProgress))
	assert.False(t, EnrollmentPassed.CanTransition(EnrollmentCompleted))

	for _, terminal := range []EnrollmentStatus{EnrollmentPassed, EnrollmentWithdrawn, EnrollmentRemoved} {
		assert.True(t, terminal.Terminal(), terminal)
		for _, to := range []EnrollmentStatus{EnrollmentInProgress, EnrollmentCompleted, EnrollmentPassed, EnrollmentWithdrawn, EnrollmentRemoved} {
			assert.False(t, terminal.CanTransition(to), "%s -> %s", terminal, to)
		}
	}
}

func TestProgressPct(t *testing.T) {
	assert.Equal(t, 0, ProgressPct(0, 0))
	assert.Equal(t, 0, ProgressPct(3, 0))
	assert.Equal(t, 0, ProgressPct(0, 4))
	assert.Equal(t, 33, ProgressPct(1, 3))
	assert.Equal(t, 66, ProgressPct(2, 3))
	assert.Equal(t, 100, ProgressPct(3, 3))
}

func TestVoyageStatusTransitions(t *testing.T) {
	assert.True(t, VoyagePlanned.CanTransition(VoyageUnderway))
	assert.True(t, VoyageUnderway.CanTransition(VoyageCompleted))
	assert.True(t, VoyageCompleted.CanTransition(VoyageSettled))
	assert.False(t, VoyageSettled.CanTransition(VoyageCompleted))
	assert.False(t, VoyagePlanned.CanTransition(VoyageCompleted))
}
