package domain

import (
	"time"
)

// Project organizes work into an optional hierarchy. Projects may carry a
// per-project notification interval that overrides the global default.
type Project struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	ParentID               *string   `json:"parent_id,omitempty"`
	Color                  string    `json:"color"`
	Description            string    `json:"description,omitempty"`
	DefaultDurationMinutes int       `json:"default_duration"`
	NotificationInterval   *int      `json:"notification_interval,omitempty"`
	IsArchived             bool      `json:"is_archived"`
	IsPinned               bool      `json:"is_pinned"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Tag categorizes sessions and planning entries. A tag may be scoped to a
// project or global (nil ProjectID).
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	ProjectID *string   `json:"project_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
