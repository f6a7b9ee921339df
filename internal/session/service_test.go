package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkrasov/planner/internal/domain"
	"github.com/mkrasov/planner/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService() (*Service, *fakeClock, *store.Memory) {
	clk := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	repo := store.NewMemory()
	return NewService(repo, clk), clk, repo
}

func TestStartSession(t *testing.T) {
	svc, clk, _ := newTestService()

	s, err := svc.Start(context.Background(), StartInput{PlannedDurationMinutes: 30})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.ID == "" {
		t.Error("Expected session to have an id")
	}
	if !s.StartTime.Equal(clk.now) {
		t.Errorf("StartTime = %v, want %v", s.StartTime, clk.now)
	}
	if !s.Active() {
		t.Error("Expected new session to be active")
	}
}

func TestStartRejectsNonPositiveDuration(t *testing.T) {
	svc, _, _ := newTestService()

	for _, minutes := range []int{0, -15} {
		_, err := svc.Start(context.Background(), StartInput{PlannedDurationMinutes: minutes})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Start with duration %d: got %v, want ErrInvalidInput", minutes, err)
		}
	}
}

func TestSecondStartConflicts(t *testing.T) {
	// Scenario: start at 09:00, attempt a second start at 09:05. The
	// second start must fail explicitly and leave the first untouched.
	svc, clk, _ := newTestService()

	first, err := svc.Start(context.Background(), StartInput{PlannedDurationMinutes: 30})
	if err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	clk.Advance(5 * time.Minute)
	_, err = svc.Start(context.Background(), StartInput{PlannedDurationMinutes: 60})
	if !errors.Is(err, domain.ErrSessionConflict) {
		t.Fatalf("second Start: got %v, want ErrSessionConflict", err)
	}

	active, err := svc.Active(context.Background())
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if active == nil || active.ID != first.ID {
		t.Error("Expected first session to remain the active one")
	}
	if active.PlannedDurationMinutes != 30 {
		t.Errorf("PlannedDurationMinutes = %d, want 30", active.PlannedDurationMinutes)
	}
}

func TestSingleActiveInvariant(t *testing.T) {
	svc, clk, repo := newTestService()
	ctx := context.Background()

	// Arbitrary start/stop sequence; after every call at most one session
	// may be active.
	assertAtMostOneActive := func() {
		t.Helper()
		recent, err := repo.ListRecentSessions(ctx, 100)
		if err != nil {
			t.Fatalf("ListRecentSessions failed: %v", err)
		}
		for _, s := range recent {
			if s.Active() {
				t.Fatal("completed listing returned an active session")
			}
		}
	}

	for i := 0; i < 5; i++ {
		s, err := svc.Start(ctx, StartInput{PlannedDurationMinutes: 10})
		if err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
		if _, err := svc.Start(ctx, StartInput{PlannedDurationMinutes: 10}); !errors.Is(err, domain.ErrSessionConflict) {
			t.Fatalf("Start %d while active: got %v, want ErrSessionConflict", i, err)
		}
		assertAtMostOneActive()

		clk.Advance(10 * time.Minute)
		if _, err := svc.Stop(ctx, s.ID, nil); err != nil {
			t.Fatalf("Stop %d failed: %v", i, err)
		}
		assertAtMostOneActive()
	}
}

func TestQuickStopPreservesReviewFields(t *testing.T) {
	svc, clk, _ := newTestService()
	ctx := context.Background()

	s, err := svc.Start(ctx, StartInput{PlannedDurationMinutes: 25})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	clk.Advance(25 * time.Minute)
	stopped, err := svc.Stop(ctx, s.ID, nil)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if stopped.EndTime == nil {
		t.Fatal("Expected end time to be set")
	}
	if !stopped.EndTime.Equal(clk.now) {
		t.Errorf("EndTime = %v, want %v", stopped.EndTime, clk.now)
	}
	if stopped.SatisfactionScore != nil || stopped.TasksDone != "" || stopped.Notes != "" {
		t.Error("Quick stop must leave review fields untouched")
	}

	actual, ok := stopped.ActualDurationMinutes()
	if !ok || actual != 25 {
		t.Errorf("ActualDurationMinutes = %d (%v), want 25", actual, ok)
	}
}

func TestStopMergesReview(t *testing.T) {
	svc, clk, _ := newTestService()
	ctx := context.Background()

	s, err := svc.Start(ctx, StartInput{PlannedDurationMinutes: 25})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Partial review: only score and tasks, no notes.
	clk.Advance(30 * time.Minute)
	score := 85
	tasks := "wrote the report"
	stopped, err := svc.Stop(ctx, s.ID, &domain.SessionReview{
		SatisfactionScore: &score,
		TasksDone:         &tasks,
	})
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if stopped.SatisfactionScore == nil || *stopped.SatisfactionScore != 85 {
		t.Errorf("SatisfactionScore = %v, want 85", stopped.SatisfactionScore)
	}
	if stopped.TasksDone != "wrote the report" {
		t.Errorf("TasksDone = %q, want %q", stopped.TasksDone, tasks)
	}
}

func TestStopValidatesScore(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	s, err := svc.Start(ctx, StartInput{PlannedDurationMinutes: 25})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for _, score := range []int{-1, 101} {
		bad := score
		_, err := svc.Stop(ctx, s.ID, &domain.SessionReview{SatisfactionScore: &bad})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Stop with score %d: got %v, want ErrInvalidInput", score, err)
		}
	}
}

func TestStopTwice(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	s, err := svc.Start(ctx, StartInput{PlannedDurationMinutes: 25})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.Stop(ctx, s.ID, nil); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	_, err = svc.Stop(ctx, s.ID, nil)
	if !errors.Is(err, domain.ErrSessionStopped) {
		t.Errorf("second Stop: got %v, want ErrSessionStopped", err)
	}
}

func TestStopUnknownSession(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Stop(context.Background(), "nope", nil)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Stop unknown: got %v, want ErrSessionNotFound", err)
	}
}

func TestAddNote(t *testing.T) {
	svc, clk, _ := newTestService()
	ctx := context.Background()

	s, err := svc.Start(ctx, StartInput{PlannedDurationMinutes: 25})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	clk.Advance(14 * time.Minute)
	updated, err := svc.AddNote(ctx, s.ID, "switched to the parser")
	if err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}
	if updated.Notes != "[09:14] switched to the parser" {
		t.Errorf("Notes = %q, want %q", updated.Notes, "[09:14] switched to the parser")
	}

	clk.Advance(10 * time.Minute)
	updated, err = svc.AddNote(ctx, s.ID, "tests passing")
	if err != nil {
		t.Fatalf("second AddNote failed: %v", err)
	}
	want := "[09:14] switched to the parser\n[09:24] tests passing"
	if updated.Notes != want {
		t.Errorf("Notes = %q, want %q", updated.Notes, want)
	}
}

func TestAddNoteRequiresActiveSession(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	s, err := svc.Start(ctx, StartInput{PlannedDurationMinutes: 25})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.Stop(ctx, s.ID, nil); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	_, err = svc.AddNote(ctx, s.ID, "too late")
	if !errors.Is(err, domain.ErrSessionStopped) {
		t.Errorf("AddNote on stopped session: got %v, want ErrSessionStopped", err)
	}
}

func TestAddTime(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	s, err := svc.Start(ctx, StartInput{PlannedDurationMinutes: 25})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	updated, err := svc.AddTime(ctx, s.ID, 15)
	if err != nil {
		t.Fatalf("AddTime failed: %v", err)
	}
	if updated.PlannedDurationMinutes != 40 {
		t.Errorf("PlannedDurationMinutes = %d, want 40", updated.PlannedDurationMinutes)
	}

	_, err = svc.AddTime(ctx, s.ID, 0)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("AddTime(0): got %v, want ErrInvalidInput", err)
	}
	_, err = svc.AddTime(ctx, s.ID, -5)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("AddTime(-5): got %v, want ErrInvalidInput", err)
	}
}

func TestToggleNotificationsIsIdempotentPair(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	s, err := svc.Start(ctx, StartInput{PlannedDurationMinutes: 25})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.NotificationsDisabled {
		t.Fatal("Expected notifications enabled on a fresh session")
	}

	once, err := svc.ToggleNotifications(ctx, s.ID)
	if err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if !once.NotificationsDisabled {
		t.Error("Expected notifications disabled after one toggle")
	}

	twice, err := svc.ToggleNotifications(ctx, s.ID)
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if twice.NotificationsDisabled {
		t.Error("Expected two toggles to restore the original value")
	}
}
