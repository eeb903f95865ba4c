package trip

import "time"

// Phase is the derived, date-based classification of a trip. It is computed
// from dates on every read and is distinct from the user-set status field.
type Phase string

const (
	PhasePlanning  Phase = "planning"
	PhaseUpcoming  Phase = "upcoming"
	PhaseOngoing   Phase = "ongoing"
	PhaseCompleted Phase = "completed"
)

// PhaseInfo carries the phase plus its counters. DaysUntil is set only for
// upcoming trips, CurrentDay (1-indexed) only for ongoing ones.
type PhaseInfo struct {
	Phase      Phase `json:"phase"`
	DaysUntil  *int  `json:"days_until,omitempty"`
	CurrentDay *int  `json:"current_day,omitempty"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// ParseDate parses a stored calendar date. Dates come from agent-extracted
// text, so a handful of layouts are accepted; anything else returns false.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), true
		}
	}
	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole days from a to b, negative when b is before a.
func daysBetween(a, b time.Time) int {
	return int(midnight(b).Sub(midnight(a)).Hours() / 24)
}

// ResolvePhase classifies a trip relative to the injected wall-clock date.
//
// A trip with no (or unparseable) start date is always planning, whatever its
// stored status says. Before the start date it is upcoming, inside the date
// window it is ongoing, past the window it is completed. When the end date is
// absent the window is the start day alone, extended by durationDays when
// present. A single-day trip is ongoing exactly on its day.
func ResolvePhase(startDate, endDate *string, durationDays *int, today time.Time) PhaseInfo {
	if startDate == nil {
		return PhaseInfo{Phase: PhasePlanning}
	}

	start, ok := ParseDate(*startDate)
	if !ok {
		return PhaseInfo{Phase: PhasePlanning}
	}

	now := midnight(today)

	if now.Before(start) {
		daysUntil := daysBetween(now, start)
		return PhaseInfo{Phase: PhaseUpcoming, DaysUntil: &daysUntil}
	}

	lastDay := start
	haveEnd := false
	if endDate != nil {
		if end, ok := ParseDate(*endDate); ok && !end.Before(start) {
			lastDay = end
			haveEnd = true
		}
	}
	// duration_days is the whole-day difference between the dates, so with no
	// end date the window closes at start + duration_days
	if !haveEnd && durationDays != nil && *durationDays > 0 {
		lastDay = start.AddDate(0, 0, *durationDays)
	}

	if now.After(lastDay) {
		return PhaseInfo{Phase: PhaseCompleted}
	}

	currentDay := daysBetween(start, now) + 1
	if currentDay < 1 {
		currentDay = 1
	}
	if durationDays != nil && *durationDays > 0 && currentDay > *durationDays+1 {
		currentDay = *durationDays + 1
	}

	return PhaseInfo{Phase: PhaseOngoing, CurrentDay: &currentDay}
}

// DeriveDuration computes duration_days as the whole-day difference between
// the two dates. It returns nil unless both dates parse and are ordered.
func DeriveDuration(startDate, endDate *string) *int {
	if startDate == nil || endDate == nil {
		return nil
	}
	start, ok := ParseDate(*startDate)
	if !ok {
		return nil
	}
	end, ok := ParseDate(*endDate)
	if !ok || end.Before(start) {
		return nil
	}
	days := daysBetween(start, end)
	return &days
}
