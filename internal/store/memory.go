package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mkrasov/planner/internal/domain"
)

// Memory is an in-memory Repository. It enforces the same invariants as
// the SQLite store and is used in tests and as a throwaway backend for
// local experiments. Not persisted across restarts.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	planning map[string]*domain.PlanningEntry
	projects map[string]*domain.Project
	tags     map[string]*domain.Tag
	settings map[string]json.RawMessage
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*domain.Session),
		planning: make(map[string]*domain.PlanningEntry),
		projects: make(map[string]*domain.Project),
		tags:     make(map[string]*domain.Tag),
		settings: make(map[string]json.RawMessage),
	}
}

// CreateSession inserts a session, enforcing the single-active invariant
// under the store lock.
func (m *Memory) CreateSession(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.sessions {
		if existing.EndTime == nil {
			return domain.ErrSessionConflict
		}
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	m.sessions[session.ID] = copySession(session)
	return nil
}

// GetSession retrieves a session by id.
func (m *Memory) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(session), nil
}

// GetActiveSession returns the session with no end time, or nil.
func (m *Memory) GetActiveSession(ctx context.Context) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.sessions {
		if session.EndTime == nil {
			return copySession(session), nil
		}
	}
	return nil, nil
}

// StopSession sets the end time and merges review fields.
func (m *Memory) StopSession(ctx context.Context, id string, endTime time.Time, review *domain.SessionReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.EndTime != nil {
		return domain.ErrSessionStopped
	}

	end := endTime
	session.EndTime = &end
	session.UpdatedAt = time.Now()

	if review != nil {
		if review.SatisfactionScore != nil {
			score := *review.SatisfactionScore
			session.SatisfactionScore = &score
		}
		if review.TasksDone != nil {
			session.TasksDone = *review.TasksDone
		}
		if review.Notes != nil {
			session.Notes = *review.Notes
		}
		if review.TagIDs != nil {
			session.TagIDs = append([]string(nil), (*review.TagIDs)...)
		}
	}
	return nil
}

// AppendSessionNote appends a line to an active session's notes.
func (m *Memory) AppendSessionNote(ctx context.Context, id string, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.activeLocked(id)
	if err != nil {
		return err
	}
	if session.Notes == "" {
		session.Notes = note
	} else {
		session.Notes += "\n" + note
	}
	session.UpdatedAt = time.Now()
	return nil
}

// AddSessionTime increases an active session's planned duration.
func (m *Memory) AddSessionTime(ctx context.Context, id string, minutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.activeLocked(id)
	if err != nil {
		return err
	}
	session.PlannedDurationMinutes += minutes
	session.UpdatedAt = time.Now()
	return nil
}

// ToggleSessionNotifications flips the suppression flag on an active session.
func (m *Memory) ToggleSessionNotifications(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.activeLocked(id)
	if err != nil {
		return err
	}
	session.NotificationsDisabled = !session.NotificationsDisabled
	session.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) activeLocked(id string) (*domain.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.EndTime != nil {
		return nil, domain.ErrSessionStopped
	}
	return session, nil
}

// ListRecentSessions returns completed sessions, most recent first.
func (m *Memory) ListRecentSessions(ctx context.Context, limit int) ([]*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sessions []*domain.Session
	for _, session := range m.sessions {
		if session.EndTime != nil {
			sessions = append(sessions, copySession(session))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// HasSessionForPlanning reports whether any session references the
// planning entry.
func (m *Memory) HasSessionForPlanning(ctx context.Context, planningID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.sessions {
		if session.PlanningID != nil && *session.PlanningID == planningID {
			return true, nil
		}
	}
	return false, nil
}

// HasSessionStartedSince reports whether any session started at or after t.
func (m *Memory) HasSessionStartedSince(ctx context.Context, t time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.sessions {
		if !session.StartTime.Before(t) {
			return true, nil
		}
	}
	return false, nil
}

// CreatePlanning inserts a planning entry, enforcing same-day and
// no-overlap rules.
func (m *Memory) CreatePlanning(ctx context.Context, entry *domain.PlanningEntry) error {
	if !entry.ScheduledEnd.After(entry.ScheduledStart) {
		return fmt.Errorf("%w: scheduled_end must be after scheduled_start", domain.ErrInvalidInput)
	}
	sy, sm, sd := entry.ScheduledStart.Date()
	ey, em, ed := entry.ScheduledEnd.Date()
	if sy != ey || sm != em || sd != ed {
		return fmt.Errorf("%w: planning must be within the same day", domain.ErrInvalidInput)
	}
	if !entry.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, entry.Priority)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.planning {
		if existing.Overlaps(entry.ScheduledStart, entry.ScheduledEnd) {
			return domain.ErrPlanningOverlap
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	m.planning[entry.ID] = copyPlanning(entry)
	return nil
}

// GetPlanning retrieves a planning entry by id.
func (m *Memory) GetPlanning(ctx context.Context, id string) (*domain.PlanningEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.planning[id]
	if !ok {
		return nil, nil
	}
	return copyPlanning(entry), nil
}

// GetPlanningInRange returns entries starting in [start, end], ordered by
// scheduled start.
func (m *Memory) GetPlanningInRange(ctx context.Context, start, end time.Time) ([]*domain.PlanningEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []*domain.PlanningEntry
	for _, entry := range m.planning {
		if !entry.ScheduledStart.Before(start) && !entry.ScheduledStart.After(end) {
			entries = append(entries, copyPlanning(entry))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ScheduledStart.Before(entries[j].ScheduledStart)
	})
	return entries, nil
}

// GetOpenPlanning returns entries whose scheduled window contains t.
func (m *Memory) GetOpenPlanning(ctx context.Context, t time.Time) ([]*domain.PlanningEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []*domain.PlanningEntry
	for _, entry := range m.planning {
		if !entry.ScheduledStart.After(t) && entry.ScheduledEnd.After(t) {
			entries = append(entries, copyPlanning(entry))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ScheduledStart.Before(entries[j].ScheduledStart)
	})
	return entries, nil
}

// CreateProject inserts a project.
func (m *Memory) CreateProject(ctx context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	clone := *project
	m.projects[project.ID] = &clone
	return nil
}

// GetProject retrieves a project by id.
func (m *Memory) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	project, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	clone := *project
	return &clone, nil
}

// CreateTag inserts a tag.
func (m *Memory) CreateTag(ctx context.Context, tag *domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tag.ID == "" {
		tag.ID = uuid.NewString()
	}
	now := time.Now()
	tag.CreatedAt = now
	tag.UpdatedAt = now

	clone := *tag
	m.tags[tag.ID] = &clone
	return nil
}

// GetTagsByIDs resolves tag ids to full tag records, ordered by name.
// Unknown ids are silently skipped.
func (m *Memory) GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tags []*domain.Tag
	for _, id := range ids {
		tag, ok := m.tags[id]
		if !ok {
			continue
		}
		clone := *tag
		tags = append(tags, &clone)
	}
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Name < tags[j].Name
	})
	return tags, nil
}

// GetSetting returns the stored JSON for a key, or nil if unset.
func (m *Memory) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.settings[key]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), value...), nil
}

// PutSetting stores the JSON value for a key.
func (m *Memory) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[key] = append(json.RawMessage(nil), value...)
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

func copySession(s *domain.Session) *domain.Session {
	clone := *s
	if s.EndTime != nil {
		end := *s.EndTime
		clone.EndTime = &end
	}
	if s.SatisfactionScore != nil {
		score := *s.SatisfactionScore
		clone.SatisfactionScore = &score
	}
	clone.TagIDs = append([]string(nil), s.TagIDs...)
	return &clone
}

func copyPlanning(p *domain.PlanningEntry) *domain.PlanningEntry {
	clone := *p
	clone.TagIDs = append([]string(nil), p.TagIDs...)
	return &clone
}
