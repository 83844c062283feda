package delegation

import "time"

// Phase is where an entry sits relative to a point in time.
type Phase string

const (
	PhaseScheduled Phase = "Scheduled"
	PhaseActive    Phase = "Active"
	PhasePast      Phase = "Past"
)

// Entry is one grant of acting authority from the owning user to DelegatedToID.
type Entry struct {
	ID            string    `json:"id"`
	DelegatedToID string    `json:"delegatedToId"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	AssignedAt    time.Time `json:"assignedAt"`
}

func (e Entry) PhaseAt(now time.Time) Phase {
	switch {
	case now.Before(e.StartDate):
		return PhaseScheduled
	case now.After(e.EndDate):
		return PhasePast
	default:
		return PhaseActive
	}
}

// ActiveAt reports start <= now <= end.
func (e Entry) ActiveAt(now time.Time) bool {
	return e.PhaseAt(now) == PhaseActive
}

// View pairs an entry with its phase at the time it was read.
type View struct {
	Entry
	Phase Phase `json:"phase"`
}
