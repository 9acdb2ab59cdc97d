package entity

import (
	"strings"
	"time"
)

// Flag is an on/off feature toggle identified by an immutable id and a unique key.
type Flag struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FlagUpdate holds the mutable fields of a Flag. Nil fields are left unchanged.
type FlagUpdate struct {
	Key         *string `json:"key,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

// Apply returns a copy of f with the supplied fields trimmed and merged in.
// UpdatedAt is set to now.
func (f Flag) Apply(u FlagUpdate, now time.Time) *Flag {
	updated := f
	if u.Key != nil {
		updated.Key = strings.TrimSpace(*u.Key)
	}
	if u.Name != nil {
		updated.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		updated.Description = strings.TrimSpace(*u.Description)
	}
	if u.Enabled != nil {
		updated.Enabled = *u.Enabled
	}
	updated.UpdatedAt = now
	return &updated
}
