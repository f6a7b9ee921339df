package notify

import (
	"fmt"

	"github.com/mkrasov/planner/internal/domain"
)

// Message templates. The wording is load-bearing: the desktop frontend
// and long-time users pattern-match on these exact strings.

func planningInitial(entry *domain.PlanningEntry, projectName string) (title, message string) {
	title = "Scheduled Work"
	message = fmt.Sprintf("Time to start: %s", projectName)
	if entry.Description != "" {
		message += "\n" + entry.Description
	}
	return title, message
}

func planningReminder(entry *domain.PlanningEntry, projectName string, minutesAgo int) (title, message string) {
	title = "Planning Reminder"
	message = fmt.Sprintf("Reminder: %s\nScheduled %d minutes ago", projectName, minutesAgo)
	if entry.Description != "" {
		message += "\n" + entry.Description
	}
	return title, message
}

func sessionInitial(projectName string, plannedMinutes int) (title, message string) {
	title = fmt.Sprintf("Session Complete: %s", projectName)
	message = fmt.Sprintf("Time is up! You've worked for %d minutes. Consider taking a break.", plannedMinutes)
	return title, message
}

func sessionReminder(projectName string, overtimeMinutes, plannedMinutes, elapsedMinutes int) (title, message string) {
	title = fmt.Sprintf("Still Working: %s", projectName)
	message = fmt.Sprintf("You're %d minutes over planned time.\nPlanned: %d min, Elapsed: %d min",
		overtimeMinutes, plannedMinutes, elapsedMinutes)
	return title, message
}

func urgencyFor(priority domain.Priority) Urgency {
	if priority == domain.PriorityCritical {
		return UrgencyCritical
	}
	return UrgencyNormal
}
