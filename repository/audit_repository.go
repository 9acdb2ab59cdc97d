package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"cloth/entity"
	"cloth/kvstore"

	"github.com/google/uuid"
)

// AuditKeyPrefix namespaces audit entries; entries of one flag share
// AuditKeyPrefix + flagID + ":".
const AuditKeyPrefix = "audit:"

type AuditRepository interface {
	CreateAuditLog(ctx context.Context, log *entity.AuditLog) error
	ListAuditLogsByFlagID(ctx context.Context, flagID string) ([]*entity.AuditLog, error)
}

type kvAuditRepository struct {
	store kvstore.Store
}

func NewAuditRepository(store kvstore.Store) AuditRepository {
	return &kvAuditRepository{store: store}
}

func auditFlagPrefix(flagID string) string {
	return AuditKeyPrefix + flagID + ":"
}

func (r *kvAuditRepository) CreateAuditLog(ctx context.Context, log *entity.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}

	raw, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to encode audit log: %w", err)
	}

	// zero-padded nanoseconds keep keys of one flag in chronological order
	key := fmt.Sprintf("%s%020d:%s", auditFlagPrefix(log.FlagID), log.CreatedAt.UnixNano(), log.ID)
	if err := r.store.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *kvAuditRepository) ListAuditLogsByFlagID(ctx context.Context, flagID string) ([]*entity.AuditLog, error) {
	entries, err := r.store.List(ctx, auditFlagPrefix(flagID))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs by flag ID: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	logs := make([]*entity.AuditLog, 0, len(keys))
	for _, k := range keys {
		var log entity.AuditLog
		if err := json.Unmarshal(entries[k], &log); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorruptRecord, k, err)
		}
		logs = append(logs, &log)
	}
	return logs, nil
}
