package notify

import (
	"testing"

	"github.com/mkrasov/planner/internal/domain"
)

func TestPlanningInitialMessage(t *testing.T) {
	entry := &domain.PlanningEntry{Description: "draft the outline"}
	title, message := planningInitial(entry, "Thesis")

	if title != "Scheduled Work" {
		t.Errorf("title = %q, want %q", title, "Scheduled Work")
	}
	want := "Time to start: Thesis\ndraft the outline"
	if message != want {
		t.Errorf("message = %q, want %q", message, want)
	}

	entry.Description = ""
	_, message = planningInitial(entry, "Thesis")
	if message != "Time to start: Thesis" {
		t.Errorf("message without description = %q, want %q", message, "Time to start: Thesis")
	}
}

func TestPlanningReminderMessage(t *testing.T) {
	entry := &domain.PlanningEntry{Description: "draft the outline"}
	title, message := planningReminder(entry, "Thesis", 10)

	if title != "Planning Reminder" {
		t.Errorf("title = %q, want %q", title, "Planning Reminder")
	}
	want := "Reminder: Thesis\nScheduled 10 minutes ago\ndraft the outline"
	if message != want {
		t.Errorf("message = %q, want %q", message, want)
	}
}

func TestSessionInitialMessage(t *testing.T) {
	title, message := sessionInitial("Thesis", 60)

	if title != "Session Complete: Thesis" {
		t.Errorf("title = %q, want %q", title, "Session Complete: Thesis")
	}
	want := "Time is up! You've worked for 60 minutes. Consider taking a break."
	if message != want {
		t.Errorf("message = %q, want %q", message, want)
	}
}

func TestSessionReminderMessage(t *testing.T) {
	title, message := sessionReminder("Thesis", 5, 60, 65)

	if title != "Still Working: Thesis" {
		t.Errorf("title = %q, want %q", title, "Still Working: Thesis")
	}
	want := "You're 5 minutes over planned time.\nPlanned: 60 min, Elapsed: 65 min"
	if message != want {
		t.Errorf("message = %q, want %q", message, want)
	}
}

func TestUrgencyMapping(t *testing.T) {
	if got := urgencyFor(domain.PriorityCritical); got != UrgencyCritical {
		t.Errorf("urgencyFor(critical) = %q, want critical", got)
	}
	if got := urgencyFor(domain.PriorityMedium); got != UrgencyNormal {
		t.Errorf("urgencyFor(medium) = %q, want normal", got)
	}
	if got := urgencyFor(domain.PriorityLow); got != UrgencyNormal {
		t.Errorf("urgencyFor(low) = %q, want normal", got)
	}
}
