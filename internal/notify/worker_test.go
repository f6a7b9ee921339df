package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkrasov/planner/internal/domain"
	"github.com/mkrasov/planner/internal/store"
)

type fakeDispatcher struct {
	sent     []Notification
	attempts int
	err      error
	panics   bool
}

func (d *fakeDispatcher) Send(ctx context.Context, n Notification) error {
	d.attempts++
	if d.panics {
		panic("dispatcher exploded")
	}
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, n)
	return nil
}

type workerFixture struct {
	repo       *store.Memory
	dispatcher *fakeDispatcher
	clk        *fakeClock
	worker     *Worker
}

func newWorkerFixture(t *testing.T, now time.Time) *workerFixture {
	t.Helper()
	repo := store.NewMemory()
	dispatcher := &fakeDispatcher{}
	clk := &fakeClock{now: now}
	worker := NewWorker(repo, dispatcher, NewResolver(repo), NewDedupCache(clk), clk, WorkerConfig{
		PollInterval:   time.Minute,
		LookbackWindow: 5 * time.Minute,
	})
	return &workerFixture{repo: repo, dispatcher: dispatcher, clk: clk, worker: worker}
}

func (f *workerFixture) createProject(t *testing.T, name string, interval *int) *domain.Project {
	t.Helper()
	project := &domain.Project{Name: name, Color: "#3366ff", DefaultDurationMinutes: 60, NotificationInterval: interval}
	if err := f.repo.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func (f *workerFixture) createPlanning(t *testing.T, projectID string, start, end time.Time, priority domain.Priority, description string) *domain.PlanningEntry {
	t.Helper()
	entry := &domain.PlanningEntry{
		ProjectID:      projectID,
		ScheduledStart: start,
		ScheduledEnd:   end,
		Priority:       priority,
		Description:    description,
	}
	if err := f.repo.CreatePlanning(context.Background(), entry); err != nil {
		t.Fatalf("create planning: %v", err)
	}
	return entry
}

func TestPlanningNotificationSchedule(t *testing.T) {
	// Planning 14:00-15:00, critical, project interval 10, no session
	// started. 14:00 fires the initial notification at critical urgency,
	// 14:05 is silent (not on an interval boundary), 14:10 fires a reminder.
	start := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, start)
	interval := 10
	project := f.createProject(t, "Thesis", &interval)
	f.createPlanning(t, project.ID, start, start.Add(time.Hour), domain.PriorityCritical, "")

	ctx := context.Background()

	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("after 14:00 tick: %d notifications, want 1", len(f.dispatcher.sent))
	}
	initial := f.dispatcher.sent[0]
	if initial.Title != "Scheduled Work" {
		t.Errorf("initial title = %q, want %q", initial.Title, "Scheduled Work")
	}
	if initial.Message != "Time to start: Thesis" {
		t.Errorf("initial message = %q", initial.Message)
	}
	if initial.Urgency != UrgencyCritical {
		t.Errorf("initial urgency = %q, want critical", initial.Urgency)
	}

	f.clk.Advance(5 * time.Minute)
	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("after 14:05 tick: %d notifications, want still 1", len(f.dispatcher.sent))
	}

	f.clk.Advance(5 * time.Minute)
	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 2 {
		t.Fatalf("after 14:10 tick: %d notifications, want 2", len(f.dispatcher.sent))
	}
	reminder := f.dispatcher.sent[1]
	if reminder.Title != "Planning Reminder" {
		t.Errorf("reminder title = %q, want %q", reminder.Title, "Planning Reminder")
	}
	want := "Reminder: Thesis\nScheduled 10 minutes ago"
	if reminder.Message != want {
		t.Errorf("reminder message = %q, want %q", reminder.Message, want)
	}
}

func TestPlanningSkippedWhenSessionStartedFromPlan(t *testing.T) {
	start := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, start)
	project := f.createProject(t, "Thesis", nil)
	entry := f.createPlanning(t, project.ID, start, start.Add(time.Hour), domain.PriorityMedium, "")

	// Work was started from this plan, a few minutes early.
	session := &domain.Session{
		PlanningID:             &entry.ID,
		StartTime:              start.Add(-3 * time.Minute),
		PlannedDurationMinutes: 60,
	}
	if err := f.repo.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	f.worker.Tick(context.Background())
	for _, n := range f.dispatcher.sent {
		if n.Title == "Scheduled Work" || n.Title == "Planning Reminder" {
			t.Errorf("unexpected planning notification %q", n.Title)
		}
	}
}

func TestPlanningSkippedWhenOtherSessionStarted(t *testing.T) {
	start := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, start.Add(2*time.Minute))
	project := f.createProject(t, "Thesis", nil)
	f.createPlanning(t, project.ID, start, start.Add(time.Hour), domain.PriorityMedium, "")

	// The user started different work after the scheduled start; do not nag.
	session := &domain.Session{
		StartTime:              start.Add(time.Minute),
		PlannedDurationMinutes: 30,
	}
	if err := f.repo.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	f.worker.Tick(context.Background())
	for _, n := range f.dispatcher.sent {
		if n.Title == "Scheduled Work" || n.Title == "Planning Reminder" {
			t.Errorf("unexpected planning notification %q", n.Title)
		}
	}
}

func TestPlanningLongPastIgnored(t *testing.T) {
	start := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, start.Add(2*time.Hour+20*time.Minute))
	project := f.createProject(t, "Thesis", nil)
	f.createPlanning(t, project.ID, start, start.Add(time.Hour), domain.PriorityMedium, "")

	// The scheduled window ended over an hour ago and the start is far
	// outside the lookback; no late alert.
	f.worker.Tick(context.Background())
	if len(f.dispatcher.sent) != 0 {
		t.Errorf("got %d notifications for a long-past entry, want 0", len(f.dispatcher.sent))
	}
}

func TestPlanningRemindersContinueThroughWindow(t *testing.T) {
	// Even past the lookback, an entry still inside its scheduled window
	// keeps reminding at interval boundaries.
	start := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, start.Add(20*time.Minute))
	project := f.createProject(t, "Thesis", nil)
	f.createPlanning(t, project.ID, start, start.Add(time.Hour), domain.PriorityMedium, "")

	f.worker.Tick(context.Background())
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("got %d notifications at 14:20, want 1", len(f.dispatcher.sent))
	}
	want := "Reminder: Thesis\nScheduled 20 minutes ago"
	if f.dispatcher.sent[0].Message != want {
		t.Errorf("message = %q, want %q", f.dispatcher.sent[0].Message, want)
	}
}

func TestSessionEndAndOvertimeReminders(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, started)
	session := &domain.Session{StartTime: started, PlannedDurationMinutes: 60}
	if err := f.repo.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	ctx := context.Background()

	// 10:30 - not yet due.
	f.clk.Advance(30 * time.Minute)
	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 0 {
		t.Fatalf("before planned end: %d notifications, want 0", len(f.dispatcher.sent))
	}

	// 11:00 - time is up, initial notification.
	f.clk.Advance(30 * time.Minute)
	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("at planned end: %d notifications, want 1", len(f.dispatcher.sent))
	}
	initial := f.dispatcher.sent[0]
	if initial.Title != "Session Complete: Session" {
		t.Errorf("initial title = %q", initial.Title)
	}
	if initial.Message != "Time is up! You've worked for 60 minutes. Consider taking a break." {
		t.Errorf("initial message = %q", initial.Message)
	}
	if initial.Urgency != UrgencyNormal {
		t.Errorf("initial urgency = %q, want normal", initial.Urgency)
	}

	// 11:05 - overtime 5, not on the default 10-minute boundary.
	f.clk.Advance(5 * time.Minute)
	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("at overtime 5: %d notifications, want still 1", len(f.dispatcher.sent))
	}

	// 11:10 - overtime 10, reminder fires.
	f.clk.Advance(5 * time.Minute)
	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 2 {
		t.Fatalf("at overtime 10: %d notifications, want 2", len(f.dispatcher.sent))
	}
	reminder := f.dispatcher.sent[1]
	if reminder.Title != "Still Working: Session" {
		t.Errorf("reminder title = %q", reminder.Title)
	}
	want := "You're 10 minutes over planned time.\nPlanned: 60 min, Elapsed: 70 min"
	if reminder.Message != want {
		t.Errorf("reminder message = %q, want %q", reminder.Message, want)
	}
}

func TestSessionNotificationsDisabled(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, started.Add(70*time.Minute))
	session := &domain.Session{StartTime: started, PlannedDurationMinutes: 60}
	ctx := context.Background()
	if err := f.repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := f.repo.ToggleSessionNotifications(ctx, session.ID); err != nil {
		t.Fatalf("toggle notifications: %v", err)
	}

	// Deep in overtime, but suppressed; repeated ticks stay silent.
	for i := 0; i < 3; i++ {
		f.worker.Tick(ctx)
		f.clk.Advance(10 * time.Minute)
	}
	if len(f.dispatcher.sent) != 0 {
		t.Fatalf("suppressed session produced %d notifications, want 0", len(f.dispatcher.sent))
	}

	// Re-enabling resumes eligibility on the next tick that lands on a
	// boundary. The clock now sits at overtime 40, a 10-minute boundary.
	if err := f.repo.ToggleSessionNotifications(ctx, session.ID); err != nil {
		t.Fatalf("toggle notifications back: %v", err)
	}
	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("after re-enabling: %d notifications, want 1", len(f.dispatcher.sent))
	}
}

func TestDedupSuppressesSecondDispatchWithinWindow(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, started.Add(60*time.Minute))
	session := &domain.Session{StartTime: started, PlannedDurationMinutes: 60}
	ctx := context.Background()
	if err := f.repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Two ticks 30 seconds apart straddle the same minute; only one may
	// reach the dispatcher.
	f.worker.Tick(ctx)
	f.clk.Advance(30 * time.Second)
	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("got %d dispatches within the dedup window, want 1", len(f.dispatcher.sent))
	}

	// Well past the window, the next boundary fires again.
	f.clk.Advance(9*time.Minute + 30*time.Second)
	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 2 {
		t.Fatalf("got %d dispatches after the window, want 2", len(f.dispatcher.sent))
	}
}

func TestDisabledRuleSuppressesDispatch(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, started.Add(time.Hour))
	session := &domain.Session{StartTime: started, PlannedDurationMinutes: 60}
	ctx := context.Background()
	if err := f.repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	settings := `{"session_end":{"enabled":false,"interval_minutes":10}}`
	if err := f.repo.PutSetting(ctx, SettingsKey, []byte(settings)); err != nil {
		t.Fatalf("put setting: %v", err)
	}

	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 0 {
		t.Fatalf("disabled rule produced %d notifications, want 0", len(f.dispatcher.sent))
	}
}

func TestDispatchFailureIsContained(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, now)
	f.dispatcher.err = errors.New("daemon unreachable")
	ctx := context.Background()

	project := f.createProject(t, "Thesis", nil)
	f.createPlanning(t, project.ID, now, now.Add(time.Hour), domain.PriorityMedium, "")

	// A session that hit its planned duration at the same tick. It
	// started an hour before the planning entry's scheduled start, so
	// it does not suppress the planning notification.
	session := &domain.Session{StartTime: now.Add(-60 * time.Minute), PlannedDurationMinutes: 60}
	if err := f.repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Both deliveries fail; the tick must attempt both and finish quietly.
	f.worker.Tick(ctx)
	if f.dispatcher.attempts != 2 {
		t.Fatalf("attempts = %d, want 2 (planning and session both tried)", f.dispatcher.attempts)
	}
	if len(f.dispatcher.sent) != 0 {
		t.Fatalf("sent = %d, want 0", len(f.dispatcher.sent))
	}
}

func TestTickRecoversFromPanic(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, started.Add(time.Hour))
	f.dispatcher.panics = true

	session := &domain.Session{StartTime: started, PlannedDurationMinutes: 60}
	ctx := context.Background()
	if err := f.repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Must not panic past the tick boundary.
	f.worker.Tick(ctx)

	// And the loop stays usable: a later tick still evaluates.
	f.dispatcher.panics = false
	f.clk.Advance(10 * time.Minute)
	f.worker.Tick(ctx)
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("after recovery: %d notifications, want 1", len(f.dispatcher.sent))
	}
}
