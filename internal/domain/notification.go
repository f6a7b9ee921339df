package domain

// NotificationKind identifies an independently configurable notification
// category.
type NotificationKind string

// Notification kinds.
const (
	// KindPlanningStart fires when a planning entry's scheduled start
	// passes without a session being started.
	KindPlanningStart NotificationKind = "planning_start"
	// KindSessionEnd fires once when the active session reaches its
	// planned duration.
	KindSessionEnd NotificationKind = "session_end"
	// KindSessionReminder repeats while the active session runs overtime.
	KindSessionReminder NotificationKind = "session_reminder"
)

// NotificationRuleConfig is the effective, resolved configuration for one
// notification kind. It is assembled fresh on every evaluation from the
// settings store and the project's interval override, so configuration
// changes take effect on the next poll.
type NotificationRuleConfig struct {
	Enabled         bool   `json:"enabled"`
	SoundEnabled    bool   `json:"sound_enabled"`
	SoundFile       string `json:"sound_file,omitempty"`
	SoundRepeat     int    `json:"sound_repeat,omitempty"`
	IntervalMinutes int    `json:"interval_minutes"`
}
