// Package schedule places estimated phases on a calendar.
package schedule

import (
	"github.com/blueprintpro/estimator/internal/models"
)

// DefaultPhaseDays is used for phases without a positive duration. Only
// stored or generated phases reach it; request input is rejected earlier.
const DefaultPhaseDays = 7

// BufferDays separates the end of one phase from the start of the next.
const BufferDays = 1

// Derive lays the phases out back to back in the order given, starting at
// start. Dependencies are copied through but do not affect placement.
// totalOverride, when positive, replaces the summed duration.
func Derive(phases []models.PhaseEstimate, start models.Date, totalOverride int) models.Schedule {
	sched := models.Schedule{
		StartDate: start,
		EndDate:   start,
		Phases:    make([]models.SchedulePhase, 0, len(phases)),
	}

	cursor := start
	total := 0
	for i, p := range phases {
		days := p.DurationDays
		if days <= 0 {
			days = DefaultPhaseDays
		}
		if i > 0 {
			cursor = cursor.AddDays(BufferDays)
		}
		end := cursor.AddDays(days)

		deps := make([]models.PhaseID, len(p.Dependencies))
		copy(deps, p.Dependencies)

		sched.Phases = append(sched.Phases, models.SchedulePhase{
			PhaseID:      p.ID,
			PhaseName:    p.Name,
			DurationDays: days,
			StartDate:    cursor,
			EndDate:      end,
			Dependencies: deps,
		})
		total += days
		cursor = end
	}

	if n := len(sched.Phases); n > 0 {
		sched.EndDate = sched.Phases[n-1].EndDate
	}
	sched.TotalDurationDays = total
	if totalOverride > 0 {
		sched.TotalDurationDays = totalOverride
	}
	return sched
}

// FromEstimate derives the schedule for a generated estimate.
func FromEstimate(est models.EstimateResult, start models.Date) models.Schedule {
	return Derive(est.Phases, start, est.TotalDurationDays)
}
