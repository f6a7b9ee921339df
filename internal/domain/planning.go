package domain

import (
	"time"
)

// Priority is the urgency level of a planning entry.
type Priority string

// Planning priorities, lowest to highest.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityCritical:
		return true
	}
	return false
}

// PlanningEntry is a scheduled intention to work on a project within a
// time window. Start and end must fall on the same calendar day, and
// entries never overlap; both rules are enforced at creation time.
type PlanningEntry struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	Priority       Priority  `json:"priority"`
	Description    string    `json:"description,omitempty"`
	TagIDs         []string  `json:"tag_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Overlaps reports whether the entry's window intersects [start, end).
func (p *PlanningEntry) Overlaps(start, end time.Time) bool {
	return p.ScheduledStart.Before(end) && p.ScheduledEnd.After(start)
}
