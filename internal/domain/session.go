// Package domain contains core domain types for the planner application.
package domain

import (
	"time"
)

// Session represents a period of tracked work.
//
// A session with a nil EndTime is active. At most one session in the
// store may be active at any time; the store enforces this invariant
// at insert time.
type Session struct {
	ID                     string     `json:"id"`
	ProjectID              *string    `json:"project_id,omitempty"`
	PlanningID             *string    `json:"planning_id,omitempty"`
	StartTime              time.Time  `json:"start_time"`
	EndTime                *time.Time `json:"end_time,omitempty"`
	PlannedDurationMinutes int        `json:"planned_duration"`
	Notes                  string     `json:"notes,omitempty"`
	TasksDone              string     `json:"tasks_done,omitempty"`
	SatisfactionScore      *int       `json:"satisfaction_score,omitempty"`
	NotificationsDisabled  bool       `json:"notifications_disabled"`
	TagIDs                 []string   `json:"tag_ids,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Active reports whether the session is still running.
func (s *Session) Active() bool {
	return s.EndTime == nil
}

// ElapsedMinutes returns whole minutes elapsed since the session started.
// Never negative.
func (s *Session) ElapsedMinutes(now time.Time) int {
	elapsed := now.Sub(s.StartTime)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed.Minutes())
}

// RemainingMinutes returns whole minutes left of the planned duration,
// clamped at zero.
func (s *Session) RemainingMinutes(now time.Time) int {
	remaining := s.PlannedDurationMinutes - s.ElapsedMinutes(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsOvertime reports whether the session has run past its planned duration.
func (s *Session) IsOvertime(now time.Time) bool {
	return s.ElapsedMinutes(now) > s.PlannedDurationMinutes
}

// OvertimeMinutes returns whole minutes worked beyond the planned
// duration, clamped at zero.
func (s *Session) OvertimeMinutes(now time.Time) int {
	overtime := s.ElapsedMinutes(now) - s.PlannedDurationMinutes
	if overtime < 0 {
		return 0
	}
	return overtime
}

// ActualDurationMinutes returns the total session length in whole minutes.
// Only defined once the session has stopped; returns false while active.
func (s *Session) ActualDurationMinutes() (int, bool) {
	if s.EndTime == nil {
		return 0, false
	}
	return int(s.EndTime.Sub(s.StartTime).Minutes()), true
}

// SessionReview holds optional review data merged into a session when it
// is stopped. Nil fields are left unchanged on the session.
type SessionReview struct {
	SatisfactionScore *int      `json:"satisfaction_score,omitempty"`
	TasksDone         *string   `json:"tasks_done,omitempty"`
	Notes             *string   `json:"notes,omitempty"`
	TagIDs            *[]string `json:"tag_ids,omitempty"`
}
