// Package notify implements the notification scheduling engine: the
// polling worker that watches planning entries and the active session,
// the rule resolution, the dispatch transport and the de-duplication
// cache that keeps reminders from double-firing.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mkrasov/planner/internal/domain"
	"github.com/mkrasov/planner/internal/store"
)

// SettingsKey is the settings-store key holding per-kind notification
// configuration as JSON.
const SettingsKey = "notifications"

// DefaultIntervalMinutes is the reminder interval used when neither the
// settings store nor the project specifies one.
const DefaultIntervalMinutes = 10

// Resolver computes the effective NotificationRuleConfig for a kind. The
// settings store is read on every call, never cached across ticks, so
// configuration changes take effect on the next poll.
type Resolver struct {
	repo store.Repository
}

// NewResolver creates a rule resolver backed by the settings store.
func NewResolver(repo store.Repository) *Resolver {
	return &Resolver{repo: repo}
}

func defaultRule() domain.NotificationRuleConfig {
	return domain.NotificationRuleConfig{
		Enabled:         true,
		IntervalMinutes: DefaultIntervalMinutes,
	}
}

// Resolve returns the effective configuration for kind. A per-project
// notification interval, when present, overrides the stored interval.
// Malformed or missing settings fall back to defaults rather than
// silencing notifications.
func (r *Resolver) Resolve(ctx context.Context, kind domain.NotificationKind, project *domain.Project) domain.NotificationRuleConfig {
	rule := defaultRule()

	raw, err := r.repo.GetSetting(ctx, SettingsKey)
	if err != nil {
		slog.Warn("Failed to read notification settings, using defaults", "error", err)
	} else if raw != nil {
		var stored map[string]domain.NotificationRuleConfig
		if err := json.Unmarshal(raw, &stored); err != nil {
			slog.Warn("Malformed notification settings, using defaults", "error", err)
		} else if cfg, ok := stored[string(kind)]; ok {
			rule = cfg
		}
	}

	if project != nil && project.NotificationInterval != nil && *project.NotificationInterval > 0 {
		rule.IntervalMinutes = *project.NotificationInterval
	}
	if rule.IntervalMinutes <= 0 {
		rule.IntervalMinutes = DefaultIntervalMinutes
	}

	return rule
}
