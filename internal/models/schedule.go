package models

// Schedule is the calendar derived from a phase list.
type Schedule struct {
	StartDate         Date            `json:"start_date"`
	EndDate           Date            `json:"end_date"`
	TotalDurationDays int             `json:"total_duration_days"`
	Phases            []SchedulePhase `json:"phases"`
}

// SchedulePhase places one phase on the calendar. Dependencies are carried
// for display only; placement is strictly sequential.
type SchedulePhase struct {
	PhaseID      PhaseID   `json:"phase_id"`
	PhaseName    string    `json:"phase_name"`
	DurationDays int       `json:"duration_days"`
	StartDate    Date      `json:"start_date"`
	EndDate      Date      `json:"end_date"`
	Dependencies []PhaseID `json:"dependencies"`
}
