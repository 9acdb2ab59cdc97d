package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloth/entity"
	"cloth/pkg/logger"
	"cloth/pkg/metrics"
	"cloth/repository"

	"github.com/google/uuid"
)

// FlagService defines the interface for flag business logic
type FlagService interface {
	GetAllFlags(ctx context.Context) ([]*entity.Flag, error)
	GetFlag(ctx context.Context, id string) (*entity.Flag, error)
	// GetFlagByKey returns (nil, nil) when no flag holds key.
	GetFlagByKey(ctx context.Context, key string) (*entity.Flag, error)
	CreateFlag(ctx context.Context, key, name, description string, enabled bool) (*entity.Flag, error)
	UpdateFlag(ctx context.Context, id string, upd entity.FlagUpdate) (*entity.Flag, error)
	DeleteFlag(ctx context.Context, id string) error
	GetFlagAuditLogs(ctx context.Context, id string) ([]*entity.AuditLog, error)
}

type flagService struct {
	flagRepo  repository.FlagRepository
	auditRepo repository.AuditRepository
	logger    *logger.Logger
	now       func() time.Time
	newID     func() string
}

// Option customizes a FlagService.
type Option func(*flagService)

// WithClock replaces time.Now as the source of timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *flagService) { s.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *flagService) { s.newID = gen }
}

// NewFlagService wires the service. auditRepo may be nil to disable auditing.
func NewFlagService(flagRepo repository.FlagRepository, auditRepo repository.AuditRepository, log *logger.Logger, opts ...Option) FlagService {
	s := &flagService{
		flagRepo:  flagRepo,
		auditRepo: auditRepo,
		logger:    log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *flagService) GetAllFlags(ctx context.Context) ([]*entity.Flag, error) {
	flags, err := listSorted(ctx, s.flagRepo)
	s.record("list", err)
	if err != nil {
		s.logger.Errorw("Failed to list flags", "error", err)
		return nil, err
	}
	return flags, nil
}

func (s *flagService) GetFlag(ctx context.Context, id string) (*entity.Flag, error) {
	flag, err := getFlag(ctx, s.flagRepo, id)
	s.record("get", err)
	if err != nil {
		return nil, err
	}
	return flag, nil
}

func (s *flagService) GetFlagByKey(ctx context.Context, key string) (*entity.Flag, error) {
	flag, err := findByKey(ctx, s.flagRepo, key)
	s.record("get_by_key", err)
	if err != nil {
		return nil, err
	}
	return flag, nil
}

func (s *flagService) CreateFlag(ctx context.Context, key, name, description string, enabled bool) (*entity.Flag, error) {
	key = strings.TrimSpace(key)
	name = strings.TrimSpace(name)

	if key == "" {
		err := &ValidationError{Field: "key", Reason: "Key is required and cannot be empty"}
		s.record("create", err)
		return nil, err
	}
	if name == "" {
		err := &ValidationError{Field: "name", Reason: "Name is required and cannot be empty"}
		s.record("create", err)
		return nil, err
	}

	var flag *entity.Flag
	err := s.flagRepo.Atomically(ctx, func(repo repository.FlagRepository) error {
		existing, err := findByKey(ctx, repo, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return &KeyExistsError{Key: key, ExistingID: existing.ID}
		}

		now := s.now().UTC()
		flag = &entity.Flag{
			ID:          s.newID(),
			Key:         key,
			Name:        name,
			Description: strings.TrimSpace(description),
			Enabled:     enabled,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return repo.Put(ctx, flag.ID, flag)
	})
	err = storageErr("create flag "+key, err)
	s.record("create", err)
	if err != nil {
		s.logFailure("create", err, "key", key)
		return nil, err
	}

	s.audit(ctx, flag, entity.ActionCreate)
	s.logger.Infow("Flag created successfully", "flagID", flag.ID, "key", flag.Key, "actor", ActorFromContext(ctx))
	return flag, nil
}

func (s *flagService) UpdateFlag(ctx context.Context, id string, upd entity.FlagUpdate) (*entity.Flag, error) {
	var before, updated *entity.Flag

	err := s.flagRepo.Atomically(ctx, func(repo repository.FlagRepository) error {
		existing, err := getFlag(ctx, repo, id)
		if err != nil {
			return err
		}

		if upd.Key != nil && strings.TrimSpace(*upd.Key) == "" {
			return &ValidationError{Field: "key", Reason: "Key cannot be empty"}
		}
		if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
			return &ValidationError{Field: "name", Reason: "Name cannot be empty"}
		}

		if upd.Key != nil {
			newKey := strings.TrimSpace(*upd.Key)
			if newKey != existing.Key {
				holder, err := findByKey(ctx, repo, newKey)
				if err != nil {
					return err
				}
				if holder != nil && holder.ID != id {
					return &KeyExistsError{Key: newKey, ExistingID: holder.ID}
				}
			}
		}

		// updatedAt never moves backwards, even if the wall clock does
		now := s.now().UTC()
		if now.Before(existing.UpdatedAt) {
			now = existing.UpdatedAt
		}

		before = existing
		updated = existing.Apply(upd, now)
		return repo.Put(ctx, id, updated)
	})
	err = storageErr("update flag "+id, err)
	s.record("update", err)
	if err != nil {
		s.logFailure("update", err, "flagID", id)
		return nil, err
	}

	s.audit(ctx, updated, entity.UpdateAction(before, updated))
	s.logger.Infow("Flag updated successfully", "flagID", id, "key", updated.Key, "enabled", updated.Enabled, "actor", ActorFromContext(ctx))
	return updated, nil
}

func (s *flagService) DeleteFlag(ctx context.Context, id string) error {
	var deleted *entity.Flag

	err := s.flagRepo.Atomically(ctx, func(repo repository.FlagRepository) error {
		existing, err := getFlag(ctx, repo, id)
		if err != nil {
			return err
		}
		deleted = existing
		return repo.Delete(ctx, id)
	})
	err = storageErr("delete flag "+id, err)
	s.record("delete", err)
	if err != nil {
		s.logFailure("delete", err, "flagID", id)
		return err
	}

	s.audit(ctx, deleted, entity.ActionDelete)
	s.logger.Infow("Flag deleted successfully", "flagID", id, "key", deleted.Key, "actor", ActorFromContext(ctx))
	return nil
}

// GetFlagAuditLogs returns the history of a flag, newest first. History of a
// deleted flag stays readable.
func (s *flagService) GetFlagAuditLogs(ctx context.Context, id string) ([]*entity.AuditLog, error) {
	if s.auditRepo == nil {
		if _, err := s.GetFlag(ctx, id); err != nil {
			return nil, err
		}
		return []*entity.AuditLog{}, nil
	}

	logs, err := s.auditRepo.ListAuditLogsByFlagID(ctx, id)
	if err != nil {
		err = storageErr("list audit logs "+id, err)
		s.logger.Errorw("Failed to get audit logs", "error", err, "flagID", id)
		return nil, err
	}
	if len(logs) == 0 {
		if _, err := getFlag(ctx, s.flagRepo, id); err != nil {
			return nil, err
		}
	}
	return logs, nil
}

func (s *flagService) audit(ctx context.Context, flag *entity.Flag, action entity.AuditAction) {
	if s.auditRepo == nil {
		return
	}
	entry := entity.NewAuditLog(flag, action, ActorFromContext(ctx), s.now().UTC())
	if err := s.auditRepo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "flagID", flag.ID, "action", action)
	}
}

func (s *flagService) record(op string, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	metrics.RecordFlagOperation(op, result)
}

func (s *flagService) logFailure(op string, err error, keysAndValues ...interface{}) {
	kv := append([]interface{}{"operation", op, "error", err}, keysAndValues...)
	if errors.Is(err, ErrStorage) {
		s.logger.Errorw("Flag operation failed", kv...)
		return
	}
	s.logger.Warnw("Flag operation rejected", kv...)
}

func listSorted(ctx context.Context, repo repository.FlagRepository) ([]*entity.Flag, error) {
	flags, err := repo.List(ctx)
	if err != nil {
		return nil, storageErr("list flags", err)
	}
	sortNewestFirst(flags)
	return flags, nil
}

func getFlag(ctx context.Context, repo repository.FlagRepository, id string) (*entity.Flag, error) {
	flag, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFlagNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, storageErr("get flag "+id, err)
	}
	return flag, nil
}

// findByKey scans every flag; there is no key index.
func findByKey(ctx context.Context, repo repository.FlagRepository, key string) (*entity.Flag, error) {
	flags, err := listSorted(ctx, repo)
	if err != nil {
		return nil, err
	}
	for _, f := range flags {
		if f.Key == key {
			return f, nil
		}
	}
	return nil, nil
}

// sortNewestFirst orders by createdAt descending, ties by id ascending.
func sortNewestFirst(flags []*entity.Flag) {
	sort.SliceStable(flags, func(i, j int) bool {
		if !flags[i].CreatedAt.Equal(flags[j].CreatedAt) {
			return flags[i].CreatedAt.After(flags[j].CreatedAt)
		}
		return flags[i].ID < flags[j].ID
	})
}
