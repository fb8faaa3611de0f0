package schedule

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprintpro/estimator/internal/models"
)

func TestDeriveTwoPhases(t *testing.T) {
	start := models.NewDate(2024, time.January, 1)
	s := Derive([]models.PhaseEstimate{{DurationDays: 7}, {DurationDays: 14}}, start, 0)

	require.Len(t, s.Phases, 2)
	assert.Equal(t, "2024-01-01", s.Phases[0].StartDate.String())
	assert.Equal(t, "2024-01-08", s.Phases[0].EndDate.String())
	assert.Equal(t, "2024-01-09", s.Phases[1].StartDate.String())
	assert.Equal(t, "2024-01-23", s.Phases[1].EndDate.String())
	assert.Equal(t, "2024-01-23", s.EndDate.String())
	assert.Equal(t, 21, s.TotalDurationDays)
}

func TestDeriveSequentialProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		n := 1 + rng.Intn(len(models.CanonicalPhases))
		phases := make([]models.PhaseEstimate, n)
		for i := range phases {
			phases[i] = models.PhaseEstimate{ID: models.CanonicalPhases[i].ID, DurationDays: 1 + rng.Intn(30)}
		}
		start := models.NewDate(2023, time.Month(1+rng.Intn(12)), 1+rng.Intn(28))
		s := Derive(phases, start, 0)

		assert.True(t, s.Phases[0].StartDate.Equal(start))
		for i := 1; i < n; i++ {
			assert.True(t, s.Phases[i].StartDate.Equal(s.Phases[i-1].EndDate.AddDays(1)), "phase %d", i)
		}
		assert.True(t, s.EndDate.Equal(s.Phases[n-1].EndDate))
	}
}

func TestDeriveDefaultsAndOverride(t *testing.T) {
	start := models.NewDate(2024, time.March, 1)
	s := Derive([]models.PhaseEstimate{
		{ID: models.PhaseFoundation, Name: "Foundation & Footers", DurationDays: 0},
		{ID: models.PhaseFraming, DurationDays: 3, Dependencies: []models.PhaseID{models.PhaseFoundation}},
	}, start, 60)

	assert.Equal(t, DefaultPhaseDays, s.Phases[0].DurationDays)
	assert.Equal(t, "2024-03-08", s.Phases[0].EndDate.String())
	assert.Equal(t, []models.PhaseID{models.PhaseFoundation}, s.Phases[1].Dependencies)
	assert.Equal(t, []models.PhaseID{}, s.Phases[0].Dependencies)
	assert.Equal(t, 60, s.TotalDurationDays)
}

func TestDeriveIgnoresDependenciesForPlacement(t *testing.T) {
	start := models.NewDate(2024, time.June, 1)
	s := Derive([]models.PhaseEstimate{
		{ID: models.PhaseFoundation, DurationDays: 5},
		{ID: models.PhaseElectrical, DurationDays: 4, Dependencies: []models.PhaseID{models.PhaseFoundation}},
		{ID: models.PhasePlumbing, DurationDays: 4, Dependencies: []models.PhaseID{models.PhaseFoundation}},
	}, start, 0)

	assert.Equal(t, "2024-06-12", s.Phases[2].StartDate.String())
}

func TestDeriveEmpty(t *testing.T) {
	start := models.NewDate(2024, time.January, 1)
	s := Derive(nil, start, 0)
	assert.Empty(t, s.Phases)
	assert.True(t, s.EndDate.Equal(start))
	assert.Zero(t, s.TotalDurationDays)
}

func TestFromEstimate(t *testing.T) {
	est := models.EstimateResult{
		Phases:            []models.PhaseEstimate{{ID: models.PhaseFoundation, DurationDays: 10}},
		TotalDurationDays: 12,
	}
	s := FromEstimate(est, models.NewDate(2025, time.May, 5))
	assert.Equal(t, 12, s.TotalDurationDays)
	assert.Equal(t, "2025-05-15", s.EndDate.String())
}
