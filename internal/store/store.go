// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mkrasov/planner/internal/domain"
)

// Repository defines the interface for persisting planner data.
//
// Read methods that look up a single record by id return (nil, nil) when
// the record does not exist; mutating methods return the domain sentinel
// errors so callers can distinguish "not found" from "already stopped".
type Repository interface {
	// CreateSession inserts a new session, assigning its ID and
	// timestamps. The active-session check and the insert run as one
	// atomic unit; returns domain.ErrSessionConflict if another session
	// is still active.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by id.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// GetActiveSession returns the single session with no end time, or
	// nil if none is running.
	GetActiveSession(ctx context.Context) (*domain.Session, error)

	// StopSession sets the session's end time and merges any provided
	// review fields. Fields of review that are nil are left unchanged.
	StopSession(ctx context.Context, id string, endTime time.Time, review *domain.SessionReview) error

	// AppendSessionNote appends a line to the session's notes. The
	// append happens inside a single UPDATE statement so concurrent
	// calls cannot lose notes. Requires the session to be active.
	AppendSessionNote(ctx context.Context, id string, note string) error

	// AddSessionTime increases the session's planned duration. Requires
	// the session to be active.
	AddSessionTime(ctx context.Context, id string, minutes int) error

	// ToggleSessionNotifications flips the session's notification
	// suppression flag. Requires the session to be active.
	ToggleSessionNotifications(ctx context.Context, id string) error

	// ListRecentSessions returns completed sessions, most recent first.
	ListRecentSessions(ctx context.Context, limit int) ([]*domain.Session, error)

	// HasSessionForPlanning reports whether any session was started from
	// the given planning entry.
	HasSessionForPlanning(ctx context.Context, planningID string) (bool, error)

	// HasSessionStartedSince reports whether any session started at or
	// after t.
	HasSessionStartedSince(ctx context.Context, t time.Time) (bool, error)

	// CreatePlanning inserts a planning entry after validating that its
	// window stays within one calendar day and overlaps no other entry.
	CreatePlanning(ctx context.Context, entry *domain.PlanningEntry) error

	// GetPlanning retrieves a planning entry by id.
	GetPlanning(ctx context.Context, id string) (*domain.PlanningEntry, error)

	// GetPlanningInRange returns entries whose scheduled start falls in
	// [start, end], ordered by scheduled start.
	GetPlanningInRange(ctx context.Context, start, end time.Time) ([]*domain.PlanningEntry, error)

	// GetOpenPlanning returns entries whose scheduled window contains t
	// (start <= t < end), ordered by scheduled start.
	GetOpenPlanning(ctx context.Context, t time.Time) ([]*domain.PlanningEntry, error)

	// CreateProject inserts a project, assigning its ID and timestamps.
	CreateProject(ctx context.Context, project *domain.Project) error

	// GetProject retrieves a project by id.
	GetProject(ctx context.Context, id string) (*domain.Project, error)

	// CreateTag inserts a tag, assigning its ID and timestamps.
	CreateTag(ctx context.Context, tag *domain.Tag) error

	// GetTagsByIDs resolves tag ids to full tag records, ordered by
	// name. Unknown ids are silently skipped.
	GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error)

	// GetSetting returns the raw JSON value for a settings key, or nil
	// if the key is not set.
	GetSetting(ctx context.Context, key string) (json.RawMessage, error)

	// PutSetting stores the raw JSON value for a settings key.
	PutSetting(ctx context.Context, key string, value json.RawMessage) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
