package entity

import (
	"time"
)

// AuditAction represents the type of change made to a flag
type AuditAction string

const (
	ActionCreate  AuditAction = "create"
	ActionUpdate  AuditAction = "update"
	ActionEnable  AuditAction = "enable"
	ActionDisable AuditAction = "disable"
	ActionDelete  AuditAction = "delete"
)

// AuditLog records who changed a flag and how
type AuditLog struct {
	ID        string      `json:"id"`
	FlagID    string      `json:"flagId"`
	FlagKey   string      `json:"flagKey"`
	Action    AuditAction `json:"action"`
	Actor     string      `json:"actor"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewAuditLog creates a new audit log entry
func NewAuditLog(flag *Flag, action AuditAction, actor string, at time.Time) *AuditLog {
	return &AuditLog{
		FlagID:    flag.ID,
		FlagKey:   flag.Key,
		Action:    action,
		Actor:     actor,
		CreatedAt: at,
	}
}

// UpdateAction classifies a successful update: toggles of enabled are reported
// as enable/disable, everything else as update.
func UpdateAction(before, after *Flag) AuditAction {
	if before.Enabled != after.Enabled && before.Key == after.Key &&
		before.Name == after.Name && before.Description == after.Description {
		if after.Enabled {
			return ActionEnable
		}
		return ActionDisable
	}
	return ActionUpdate
}
