// Package session implements the active-session manager: starting,
// stopping and mutating tracked work sessions while enforcing the
// single-active-session invariant.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkrasov/planner/internal/clock"
	"github.com/mkrasov/planner/internal/domain"
	"github.com/mkrasov/planner/internal/store"
)

// Service is the single source of truth for whether a session is running
// and what its timer says.
type Service struct {
	repo store.Repository
	clk  clock.Clock
}

// NewService creates a session service.
func NewService(repo store.Repository, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{repo: repo, clk: clk}
}

// StartInput carries the fields needed to start a session.
type StartInput struct {
	ProjectID              *string  `json:"project_id,omitempty"`
	PlannedDurationMinutes int      `json:"planned_duration"`
	PlanningID             *string  `json:"planning_id,omitempty"`
	TagIDs                 []string `json:"tag_ids,omitempty"`
}

// Active returns the currently running session, or nil if none.
func (s *Service) Active(ctx context.Context) (*domain.Session, error) {
	return s.repo.GetActiveSession(ctx)
}

// Start begins a new session. Returns domain.ErrSessionConflict if
// another session is still active; the check and insert are atomic at
// the store layer.
func (s *Service) Start(ctx context.Context, input StartInput) (*domain.Session, error) {
	if input.PlannedDurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: planned duration must be positive", domain.ErrInvalidInput)
	}

	session := &domain.Session{
		ProjectID:              input.ProjectID,
		PlanningID:             input.PlanningID,
		StartTime:              s.clk.Now(),
		PlannedDurationMinutes: input.PlannedDurationMinutes,
		TagIDs:                 input.TagIDs,
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	slog.Info("Session started",
		"session_id", session.ID,
		"planned_duration", session.PlannedDurationMinutes)
	return session, nil
}

// Stop ends a session, optionally merging review data. Review fields left
// nil are preserved, which supports both a quick stop and a full
// stop-and-review. Returns domain.ErrSessionNotFound or
// domain.ErrSessionStopped as appropriate.
func (s *Service) Stop(ctx context.Context, id string, review *domain.SessionReview) (*domain.Session, error) {
	if review != nil && review.SatisfactionScore != nil {
		score := *review.SatisfactionScore
		if score < 0 || score > 100 {
			return nil, fmt.Errorf("%w: satisfaction score must be between 0 and 100", domain.ErrInvalidInput)
		}
	}

	if err := s.repo.StopSession(ctx, id, s.clk.Now(), review); err != nil {
		return nil, err
	}

	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	slog.Info("Session stopped", "session_id", id)
	return session, nil
}

// AddNote appends a timestamped line to the active session's notes.
func (s *Service) AddNote(ctx context.Context, id string, text string) (*domain.Session, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: note cannot be empty", domain.ErrInvalidInput)
	}

	note := fmt.Sprintf("[%s] %s", s.clk.Now().Format("15:04"), text)
	if err := s.repo.AppendSessionNote(ctx, id, note); err != nil {
		return nil, err
	}
	return s.repo.GetSession(ctx, id)
}

// AddTime extends the active session's planned duration. The UI offers
// presets but any positive number of minutes is accepted.
func (s *Service) AddTime(ctx context.Context, id string, minutes int) (*domain.Session, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: minutes must be positive", domain.ErrInvalidInput)
	}

	if err := s.repo.AddSessionTime(ctx, id, minutes); err != nil {
		return nil, err
	}
	return s.repo.GetSession(ctx, id)
}

// ToggleNotifications flips overtime-reminder suppression for the active
// session.
func (s *Service) ToggleNotifications(ctx context.Context, id string) (*domain.Session, error) {
	if err := s.repo.ToggleSessionNotifications(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetSession(ctx, id)
}

// Tags resolves tag ids to full tag records for display alongside a
// session.
func (s *Service) Tags(ctx context.Context, ids []string) ([]*domain.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.GetTagsByIDs(ctx, ids)
}

// Recent returns completed sessions, most recent first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListRecentSessions(ctx, limit)
}

// Timer is a point-in-time snapshot of the active session's derived
// timer facts. Computed fresh on every call, never cached.
type Timer struct {
	ElapsedMinutes   int  `json:"elapsed_minutes"`
	RemainingMinutes int  `json:"remaining_minutes"`
	IsOvertime       bool `json:"is_overtime"`
	OvertimeMinutes  int  `json:"overtime_minutes"`
}

// TimerFor computes the timer snapshot for a session at now.
func TimerFor(session *domain.Session, now time.Time) Timer {
	return Timer{
		ElapsedMinutes:   session.ElapsedMinutes(now),
		RemainingMinutes: session.RemainingMinutes(now),
		IsOvertime:       session.IsOvertime(now),
		OvertimeMinutes:  session.OvertimeMinutes(now),
	}
}

// Clock exposes the service's time source for handlers that render timer
// snapshots.
func (s *Service) Clock() clock.Clock {
	return s.clk
}
