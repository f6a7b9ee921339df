package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkrasov/planner/internal/clock"
	"github.com/mkrasov/planner/internal/domain"
	"github.com/mkrasov/planner/internal/store"
)

const spoolMaxAge = 24 * time.Hour

// WorkerConfig holds the worker's timing knobs.
type WorkerConfig struct {
	// PollInterval is the tick cadence.
	PollInterval time.Duration
	// LookbackWindow is how far behind a tick looks for planning starts.
	// It tolerates scheduler downtime and jitter without re-alerting for
	// entries long past.
	LookbackWindow time.Duration
}

// Worker is the notification scheduler: once per tick it evaluates
// planning entries and the active session against the current time and
// dispatches any due notifications. All decisions derive from persisted
// state, so a missed or aborted tick is simply re-evaluated next cycle.
type Worker struct {
	repo       store.Repository
	dispatcher Dispatcher
	resolver   *Resolver
	dedupe     *DedupCache
	clk        clock.Clock
	cfg        WorkerConfig

	lastSpoolSweep time.Time
}

// NewWorker creates a notification worker.
func NewWorker(repo store.Repository, dispatcher Dispatcher, resolver *Resolver, dedupe *DedupCache, clk clock.Clock, cfg WorkerConfig) *Worker {
	if clk == nil {
		clk = clock.System{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.LookbackWindow <= 0 {
		cfg.LookbackWindow = 5 * time.Minute
	}
	return &Worker{
		repo:       repo,
		dispatcher: dispatcher,
		resolver:   resolver,
		dedupe:     dedupe,
		clk:        clk,
		cfg:        cfg,
	}
}

// Start runs the worker in a background goroutine until ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Notification worker started",
			"interval", w.cfg.PollInterval,
			"lookback", w.cfg.LookbackWindow)

		for {
			select {
			case <-ticker.C:
				w.Tick(ctx)
			case <-ctx.Done():
				slog.Info("Notification worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Tick runs one evaluation pass. It never panics past its boundary; the
// polling loop is self-healing, the next tick runs regardless of this
// tick's outcome.
func (w *Worker) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Notification tick panicked", "panic", r)
		}
	}()

	now := w.clk.Now()
	w.checkPlanning(ctx, now)
	w.checkSession(ctx, now)
	w.sweepSpool(now)
}

// checkPlanning evaluates planning entries that either started within
// the lookback window or are still inside their scheduled window. The
// lookback catches short entries across scheduler downtime; the open set
// keeps interval reminders firing for as long as the plan runs.
func (w *Worker) checkPlanning(ctx context.Context, now time.Time) {
	recent, err := w.repo.GetPlanningInRange(ctx, now.Add(-w.cfg.LookbackWindow), now)
	if err != nil {
		slog.Error("Notification worker failed to query planning entries", "error", err)
		return
	}
	open, err := w.repo.GetOpenPlanning(ctx, now)
	if err != nil {
		slog.Error("Notification worker failed to query open planning entries", "error", err)
		return
	}

	seen := make(map[string]bool, len(recent)+len(open))
	var entries []*domain.PlanningEntry
	for _, entry := range append(recent, open...) {
		if seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true
		entries = append(entries, entry)
	}

	for _, entry := range entries {
		if err := w.processPlanning(ctx, entry, now); err != nil {
			// One failed entry must never abort the tick.
			slog.Error("Failed to process planning notification",
				"planning_id", entry.ID,
				"error", err)
		}
	}
}

func (w *Worker) processPlanning(ctx context.Context, entry *domain.PlanningEntry, now time.Time) error {
	// Work was started from this plan; nothing to remind about.
	started, err := w.repo.HasSessionForPlanning(ctx, entry.ID)
	if err != nil {
		return err
	}
	if started {
		return nil
	}

	// The user started different work instead; do not nag.
	other, err := w.repo.HasSessionStartedSince(ctx, entry.ScheduledStart)
	if err != nil {
		return err
	}
	if other {
		return nil
	}

	project, err := w.repo.GetProject(ctx, entry.ProjectID)
	if err != nil {
		return err
	}
	if project == nil {
		slog.Warn("Planning entry references missing project",
			"planning_id", entry.ID,
			"project_id", entry.ProjectID)
		return nil
	}

	rule := w.resolver.Resolve(ctx, domain.KindPlanningStart, project)
	if !rule.Enabled {
		return nil
	}

	elapsedMinutes := int(now.Sub(entry.ScheduledStart).Minutes())
	initial := elapsedMinutes < 1
	if !initial && elapsedMinutes%rule.IntervalMinutes != 0 {
		return nil
	}

	if w.dedupe.WasSentRecently(entry.ID, DedupPlanning) {
		return nil
	}

	var title, message string
	if initial {
		title, message = planningInitial(entry, project.Name)
	} else {
		title, message = planningReminder(entry, project.Name, elapsedMinutes)
	}

	w.send(ctx, Notification{
		Title:       title,
		Message:     message,
		Urgency:     urgencyFor(entry.Priority),
		SoundFile:   soundFile(rule),
		SoundRepeat: rule.SoundRepeat,
	}, "planning", entry.ID)
	w.dedupe.MarkSent(entry.ID, DedupPlanning)
	return nil
}

// checkSession evaluates the active session for end-of-time and overtime
// notifications.
func (w *Worker) checkSession(ctx context.Context, now time.Time) {
	session, err := w.repo.GetActiveSession(ctx)
	if err != nil {
		slog.Error("Notification worker failed to query active session", "error", err)
		return
	}
	if session == nil || session.NotificationsDisabled {
		return
	}

	elapsed := session.ElapsedMinutes(now)
	if elapsed < session.PlannedDurationMinutes {
		return
	}
	overtime := elapsed - session.PlannedDurationMinutes

	projectName := "Session"
	var project *domain.Project
	if session.ProjectID != nil {
		project, err = w.repo.GetProject(ctx, *session.ProjectID)
		if err != nil {
			slog.Error("Notification worker failed to load session project",
				"session_id", session.ID,
				"error", err)
			return
		}
		if project != nil {
			projectName = project.Name
		}
	}

	kind := domain.KindSessionEnd
	initial := overtime < 1
	if !initial {
		kind = domain.KindSessionReminder
	}

	rule := w.resolver.Resolve(ctx, kind, project)
	if !rule.Enabled {
		return
	}
	if !initial && overtime%rule.IntervalMinutes != 0 {
		return
	}

	if w.dedupe.WasSentRecently(session.ID, DedupSession) {
		return
	}

	var title, message string
	if initial {
		title, message = sessionInitial(projectName, session.PlannedDurationMinutes)
	} else {
		title, message = sessionReminder(projectName, overtime, session.PlannedDurationMinutes, elapsed)
	}

	w.send(ctx, Notification{
		Title:       title,
		Message:     message,
		Urgency:     UrgencyNormal,
		SoundFile:   soundFile(rule),
		SoundRepeat: rule.SoundRepeat,
	}, "session", session.ID)
	w.dedupe.MarkSent(session.ID, DedupSession)
}

// send dispatches with failure containment. A delivery error is logged
// and forgotten; the next tick outside the dedup window re-attempts.
func (w *Worker) send(ctx context.Context, n Notification, entityKind, entityID string) {
	if err := w.dispatcher.Send(ctx, n); err != nil {
		slog.Warn("Failed to dispatch notification",
			"kind", entityKind,
			"entity_id", entityID,
			"title", n.Title,
			"error", err)
		return
	}
	slog.Info("Sent notification",
		"kind", entityKind,
		"entity_id", entityID,
		"title", n.Title)
}

// sweepSpool prunes stale rendered config files at most once per hour.
func (w *Worker) sweepSpool(now time.Time) {
	cleaner, ok := w.dispatcher.(interface{ CleanupSpool(time.Duration) })
	if !ok {
		return
	}
	if !w.lastSpoolSweep.IsZero() && now.Sub(w.lastSpoolSweep) < time.Hour {
		return
	}
	w.lastSpoolSweep = now
	cleaner.CleanupSpool(spoolMaxAge)
}

func soundFile(rule domain.NotificationRuleConfig) string {
	if !rule.SoundEnabled {
		return ""
	}
	return rule.SoundFile
}
