package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mkrasov/planner/internal/domain"
	"github.com/mkrasov/planner/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency. Transactions
	// start as IMMEDIATE so the active-session check and insert hold the
	// write lock together.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id TEXT REFERENCES projects(id),
		color TEXT NOT NULL,
		description TEXT,
		default_duration INTEGER NOT NULL DEFAULT 60,
		notification_interval INTEGER,
		is_archived INTEGER NOT NULL DEFAULT 0,
		is_pinned INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_projects_archived ON projects(is_archived);

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		project_id TEXT REFERENCES projects(id) ON DELETE CASCADE,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(name, project_id)
	);

	CREATE TABLE IF NOT EXISTS planning (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		scheduled_start INTEGER NOT NULL,
		scheduled_end INTEGER NOT NULL,
		priority TEXT NOT NULL DEFAULT 'medium',
		description TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_planning_start ON planning(scheduled_start);

	CREATE TABLE IF NOT EXISTS planning_tags (
		planning_id TEXT NOT NULL REFERENCES planning(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (planning_id, tag_id)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		project_id TEXT REFERENCES projects(id) ON DELETE SET NULL,
		planning_id TEXT REFERENCES planning(id) ON DELETE SET NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER,
		planned_duration INTEGER NOT NULL,
		notes TEXT,
		tasks_done TEXT,
		satisfaction_score INTEGER,
		notification_disabled INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time);
	CREATE INDEX IF NOT EXISTS idx_sessions_planning ON sessions(planning_id);
	-- Schema-level backstop for the single-active-session invariant.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_single_active ON sessions((1)) WHERE end_time IS NULL;

	CREATE TABLE IF NOT EXISTS session_tags (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (session_id, tag_id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key_name TEXT PRIMARY KEY,
		value_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

const sessionColumns = `id, project_id, planning_id, start_time, end_time,
	planned_duration, notes, tasks_done, satisfaction_score,
	notification_disabled, created_at, updated_at`

// CreateSession inserts a new session. The active-session check and the
// insert run inside one IMMEDIATE transaction; a partial unique index on
// sessions catches any insert that slips past the check.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			slog.Warn("failed to roll back session insert", "error", rbErr)
		}
	}()

	var active int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE end_time IS NULL`).Scan(&active); err != nil {
		return fmt.Errorf("count active sessions: %w", err)
	}
	if active > 0 {
		return domain.ErrSessionConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, project_id, planning_id, start_time, end_time,
			planned_duration, notes, tasks_done, satisfaction_score,
			notification_disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, nullableString(session.ProjectID), nullableString(session.PlanningID),
		session.StartTime.Unix(), session.PlannedDurationMinutes,
		emptyToNull(session.Notes), emptyToNull(session.TasksDone),
		nullableInt(session.SatisfactionScore), boolToInt(session.NotificationsDisabled),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrSessionConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}

	for _, tagID := range session.TagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO session_tags (session_id, tag_id) VALUES (?, ?)`,
			session.ID, tagID); err != nil {
			return fmt.Errorf("insert session tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session insert: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err != nil || session == nil {
		return session, err
	}
	if err := s.loadSessionTags(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetActiveSession returns the single session with no end time, or nil.
func (s *SQLiteStore) GetActiveSession(ctx context.Context) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE end_time IS NULL`)
	session, err := scanSession(row)
	if err != nil || session == nil {
		return session, err
	}
	if err := s.loadSessionTags(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// StopSession sets the end time and merges review fields. The end_time
// guard in the WHERE clause makes a double stop impossible even with
// concurrent callers.
func (s *SQLiteStore) StopSession(ctx context.Context, id string, endTime time.Time, review *domain.SessionReview) error {
	query := `UPDATE sessions SET end_time = ?, updated_at = ?`
	args := []interface{}{endTime.Unix(), time.Now().Unix()}

	if review != nil {
		if review.SatisfactionScore != nil {
			query += `, satisfaction_score = ?`
			args = append(args, *review.SatisfactionScore)
		}
		if review.TasksDone != nil {
			query += `, tasks_done = ?`
			args = append(args, *review.TasksDone)
		}
		if review.Notes != nil {
			query += `, notes = ?`
			args = append(args, *review.Notes)
		}
	}

	query += ` WHERE id = ? AND end_time IS NULL`
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("stop session: %w", err)
	}
	if err := s.requireActiveRowAffected(ctx, result, id); err != nil {
		return err
	}

	if review != nil && review.TagIDs != nil {
		if err := s.replaceSessionTags(ctx, id, *review.TagIDs); err != nil {
			return err
		}
	}
	return nil
}

// AppendSessionNote appends a line to the session's notes inside a single
// UPDATE so concurrent appends cannot lose each other.
func (s *SQLiteStore) AppendSessionNote(ctx context.Context, id string, note string) error {
	query := `
		UPDATE sessions
		SET notes = CASE
			WHEN notes IS NULL OR notes = '' THEN ?
			ELSE notes || char(10) || ?
		END,
		updated_at = ?
		WHERE id = ? AND end_time IS NULL`

	var result sql.Result
	var err error
	// Retry briefly on SQLITE_BUSY; the worker may hold the write lock.
	for attempt := 0; attempt < 3; attempt++ {
		result, err = s.db.ExecContext(ctx, query, note, note, time.Now().Unix(), id)
		if err == nil || !shared.IsSQLiteConflictError(err) {
			break
		}
		time.Sleep(time.Duration(50<<attempt) * time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("append session note: %w", err)
	}
	return s.requireActiveRowAffected(ctx, result, id)
}

// AddSessionTime increases the planned duration of an active session.
func (s *SQLiteStore) AddSessionTime(ctx context.Context, id string, minutes int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET planned_duration = planned_duration + ?, updated_at = ?
		WHERE id = ? AND end_time IS NULL`,
		minutes, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("add session time: %w", err)
	}
	return s.requireActiveRowAffected(ctx, result, id)
}

// ToggleSessionNotifications flips the suppression flag on an active session.
func (s *SQLiteStore) ToggleSessionNotifications(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET notification_disabled = 1 - notification_disabled, updated_at = ?
		WHERE id = ? AND end_time IS NULL`,
		time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("toggle session notifications: %w", err)
	}
	return s.requireActiveRowAffected(ctx, result, id)
}

// requireActiveRowAffected maps a zero-row UPDATE against an active
// session into the precise domain error.
func (s *SQLiteStore) requireActiveRowAffected(ctx context.Context, result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check session existence: %w", err)
	}
	if exists == 0 {
		return domain.ErrSessionNotFound
	}
	return domain.ErrSessionStopped
}

// ListRecentSessions returns completed sessions, most recent first.
func (s *SQLiteStore) ListRecentSessions(ctx context.Context, limit int) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE end_time IS NOT NULL
		 ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer closeRows(rows, "recent sessions")

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent sessions: %w", err)
	}

	for _, session := range sessions {
		if err := s.loadSessionTags(ctx, session); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// HasSessionForPlanning reports whether any session was started from the
// given planning entry.
func (s *SQLiteStore) HasSessionForPlanning(ctx context.Context, planningID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE planning_id = ?`, planningID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count sessions for planning: %w", err)
	}
	return count > 0, nil
}

// HasSessionStartedSince reports whether any session started at or after t.
func (s *SQLiteStore) HasSessionStartedSince(ctx context.Context, t time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE start_time >= ?`, t.Unix()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count sessions since: %w", err)
	}
	return count > 0, nil
}

// CreatePlanning inserts a planning entry, enforcing the same-day and
// no-overlap rules that the rest of the system assumes.
func (s *SQLiteStore) CreatePlanning(ctx context.Context, entry *domain.PlanningEntry) error {
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

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			slog.Warn("failed to roll back planning insert", "error", rbErr)
		}
	}()

	var overlapping int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM planning
		WHERE scheduled_start < ? AND scheduled_end > ?`,
		entry.ScheduledEnd.Unix(), entry.ScheduledStart.Unix()).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("check planning overlap: %w", err)
	}
	if overlapping > 0 {
		return domain.ErrPlanningOverlap
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO planning (id, project_id, scheduled_start, scheduled_end,
			priority, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ProjectID, entry.ScheduledStart.Unix(), entry.ScheduledEnd.Unix(),
		string(entry.Priority), emptyToNull(entry.Description), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("insert planning: %w", err)
	}

	for _, tagID := range entry.TagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO planning_tags (planning_id, tag_id) VALUES (?, ?)`,
			entry.ID, tagID); err != nil {
			return fmt.Errorf("insert planning tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit planning insert: %w", err)
	}
	return nil
}

const planningColumns = `id, project_id, scheduled_start, scheduled_end,
	priority, description, created_at, updated_at`

// GetPlanning retrieves a planning entry by id.
func (s *SQLiteStore) GetPlanning(ctx context.Context, id string) (*domain.PlanningEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+planningColumns+` FROM planning WHERE id = ?`, id)
	entry, err := scanPlanning(row)
	if err != nil || entry == nil {
		return entry, err
	}
	if err := s.loadPlanningTags(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// GetPlanningInRange returns entries scheduled to start in [start, end].
func (s *SQLiteStore) GetPlanningInRange(ctx context.Context, start, end time.Time) ([]*domain.PlanningEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+planningColumns+` FROM planning
		 WHERE scheduled_start >= ? AND scheduled_start <= ?
		 ORDER BY scheduled_start`, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("query planning range: %w", err)
	}
	defer closeRows(rows, "planning range")

	var entries []*domain.PlanningEntry
	for rows.Next() {
		entry, err := scanPlanning(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate planning range: %w", err)
	}

	for _, entry := range entries {
		if err := s.loadPlanningTags(ctx, entry); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// GetOpenPlanning returns entries whose scheduled window contains t.
func (s *SQLiteStore) GetOpenPlanning(ctx context.Context, t time.Time) ([]*domain.PlanningEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+planningColumns+` FROM planning
		 WHERE scheduled_start <= ? AND scheduled_end > ?
		 ORDER BY scheduled_start`, t.Unix(), t.Unix())
	if err != nil {
		return nil, fmt.Errorf("query open planning: %w", err)
	}
	defer closeRows(rows, "open planning")

	var entries []*domain.PlanningEntry
	for rows.Next() {
		entry, err := scanPlanning(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open planning: %w", err)
	}

	for _, entry := range entries {
		if err := s.loadPlanningTags(ctx, entry); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// CreateProject inserts a project.
func (s *SQLiteStore) CreateProject(ctx context.Context, project *domain.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, parent_id, color, description,
			default_duration, notification_interval, is_archived, is_pinned,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.Name, nullableString(project.ParentID), project.Color,
		emptyToNull(project.Description), project.DefaultDurationMinutes,
		nullableInt(project.NotificationInterval),
		boolToInt(project.IsArchived), boolToInt(project.IsPinned),
		now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by id.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, parent_id, color, description, default_duration,
		       notification_interval, is_archived, is_pinned, created_at, updated_at
		FROM projects WHERE id = ?`, id)

	var project domain.Project
	var parentID, description sql.NullString
	var interval sql.NullInt64
	var archived, pinned int
	var createdAt, updatedAt int64

	err := row.Scan(
		&project.ID, &project.Name, &parentID, &project.Color, &description,
		&project.DefaultDurationMinutes, &interval, &archived, &pinned,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan project row: %w", err)
	}

	if parentID.Valid {
		project.ParentID = &parentID.String
	}
	project.Description = description.String
	if interval.Valid {
		v := int(interval.Int64)
		project.NotificationInterval = &v
	}
	project.IsArchived = archived != 0
	project.IsPinned = pinned != 0
	project.CreatedAt = time.Unix(createdAt, 0)
	project.UpdatedAt = time.Unix(updatedAt, 0)

	return &project, nil
}

// CreateTag inserts a tag.
func (s *SQLiteStore) CreateTag(ctx context.Context, tag *domain.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.NewString()
	}
	now := time.Now()
	tag.CreatedAt = now
	tag.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, color, project_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tag.ID, tag.Name, tag.Color, nullableString(tag.ProjectID),
		now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

// GetTagsByIDs resolves tag ids to full tag records, ordered by name.
// Unknown ids are silently skipped.
func (s *SQLiteStore) GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color, project_id, created_at, updated_at
		FROM tags WHERE id IN (`+placeholders+`)
		ORDER BY name`, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer closeRows(rows, "tags by ids")

	var tags []*domain.Tag
	for rows.Next() {
		var tag domain.Tag
		var projectID sql.NullString
		var createdAt, updatedAt int64
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &projectID,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		if projectID.Valid {
			tag.ProjectID = &projectID.String
		}
		tag.CreatedAt = time.Unix(createdAt, 0)
		tag.UpdatedAt = time.Unix(updatedAt, 0)
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// GetSetting returns the raw JSON value for a key, or nil if unset.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value_json FROM settings WHERE key_name = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan setting: %w", err)
	}
	return json.RawMessage(value), nil
}

// PutSetting stores the raw JSON value for a key.
func (s *SQLiteStore) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key_name, value_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key_name) DO UPDATE SET
			value_json = excluded.value_json,
			updated_at = excluded.updated_at`,
		key, string(value), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadSessionTags(ctx context.Context, session *domain.Session) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_id FROM session_tags WHERE session_id = ?`, session.ID)
	if err != nil {
		return fmt.Errorf("query session tags: %w", err)
	}
	defer closeRows(rows, "session tags")

	session.TagIDs = nil
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return fmt.Errorf("scan session tag: %w", err)
		}
		session.TagIDs = append(session.TagIDs, tagID)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadPlanningTags(ctx context.Context, entry *domain.PlanningEntry) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_id FROM planning_tags WHERE planning_id = ?`, entry.ID)
	if err != nil {
		return fmt.Errorf("query planning tags: %w", err)
	}
	defer closeRows(rows, "planning tags")

	entry.TagIDs = nil
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return fmt.Errorf("scan planning tag: %w", err)
		}
		entry.TagIDs = append(entry.TagIDs, tagID)
	}
	return rows.Err()
}

func (s *SQLiteStore) replaceSessionTags(ctx context.Context, sessionID string, tagIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			slog.Warn("failed to roll back tag replacement", "error", rbErr)
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM session_tags WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear session tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO session_tags (session_id, tag_id) VALUES (?, ?)`,
			sessionID, tagID); err != nil {
			return fmt.Errorf("insert session tag: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tag replacement: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var projectID, planningID, notes, tasksDone sql.NullString
	var endTime, satisfaction sql.NullInt64
	var startTime, createdAt, updatedAt int64
	var notifDisabled int

	err := row.Scan(
		&session.ID, &projectID, &planningID, &startTime, &endTime,
		&session.PlannedDurationMinutes, &notes, &tasksDone, &satisfaction,
		&notifDisabled, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	if projectID.Valid {
		session.ProjectID = &projectID.String
	}
	if planningID.Valid {
		session.PlanningID = &planningID.String
	}
	session.StartTime = time.Unix(startTime, 0)
	if endTime.Valid {
		end := time.Unix(endTime.Int64, 0)
		session.EndTime = &end
	}
	session.Notes = notes.String
	session.TasksDone = tasksDone.String
	if satisfaction.Valid {
		score := int(satisfaction.Int64)
		session.SatisfactionScore = &score
	}
	session.NotificationsDisabled = notifDisabled != 0
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)

	return &session, nil
}

func scanPlanning(row rowScanner) (*domain.PlanningEntry, error) {
	var entry domain.PlanningEntry
	var description sql.NullString
	var priority string
	var start, end, createdAt, updatedAt int64

	err := row.Scan(
		&entry.ID, &entry.ProjectID, &start, &end,
		&priority, &description, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan planning row: %w", err)
	}

	entry.ScheduledStart = time.Unix(start, 0)
	entry.ScheduledEnd = time.Unix(end, 0)
	entry.Priority = domain.Priority(priority)
	entry.Description = description.String
	entry.CreatedAt = time.Unix(createdAt, 0)
	entry.UpdatedAt = time.Unix(updatedAt, 0)

	return &entry, nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "what", what, "error", err)
	}
}

func nullableString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func emptyToNull(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
