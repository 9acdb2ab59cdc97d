package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloth/entity"
	"cloth/kvstore"
	"cloth/pkg/logger"
	"cloth/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	service FlagService
	store   *kvstore.MemoryStore
	audit   repository.AuditRepository
	clock   *testClock
}

func setupService(t *testing.T) *testEnv {
	t.Helper()
	mem := kvstore.NewMemoryStore()
	p := kvstore.NewPartition(kvstore.DefaultPartition, mem)
	t.Cleanup(func() { p.Close() })

	clock := &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	var seq int
	var seqMu sync.Mutex
	nextID := func() string {
		seqMu.Lock()
		defer seqMu.Unlock()
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}

	audit := repository.NewAuditRepository(p)
	svc := NewFlagService(repository.NewFlagRepository(p), audit, logger.NewNop(),
		WithClock(clock.Now), WithIDGenerator(nextID))

	return &testEnv{service: svc, store: mem, audit: audit, clock: clock}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestFlagService_CreateFlag(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		env := setupService(t)

		flag, err := env.service.CreateFlag(ctx, "beta", "Beta Feature", "", false)
		require.NoError(t, err)

		assert.NotEmpty(t, flag.ID)
		assert.Equal(t, "beta", flag.Key)
		assert.Equal(t, "Beta Feature", flag.Name)
		assert.False(t, flag.Enabled)
		assert.Equal(t, flag.CreatedAt, flag.UpdatedAt)
	})

	t.Run("trims fields", func(t *testing.T) {
		env := setupService(t)

		flag, err := env.service.CreateFlag(ctx, "  beta ", "\tBeta ", "  about  ", true)
		require.NoError(t, err)

		assert.Equal(t, "beta", flag.Key)
		assert.Equal(t, "Beta", flag.Name)
		assert.Equal(t, "about", flag.Description)
		assert.True(t, flag.Enabled)
	})

	t.Run("round trip", func(t *testing.T) {
		env := setupService(t)

		created, err := env.service.CreateFlag(ctx, "k", "n", "d", true)
		require.NoError(t, err)

		got, err := env.service.GetFlag(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "k", got.Key)
		assert.Equal(t, "n", got.Name)
		assert.Equal(t, "d", got.Description)
		assert.True(t, got.Enabled)
	})

	t.Run("validation happens before any write", func(t *testing.T) {
		cases := []struct {
			name, key, flagName, field string
		}{
			{"empty key", "", "Name", "key"},
			{"blank key", "   ", "Name", "key"},
			{"empty name", "key", "", "name"},
			{"blank name", "key", "\t\n", "name"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				env := setupService(t)

				_, err := env.service.CreateFlag(ctx, tc.key, tc.flagName, "", false)
				require.ErrorIs(t, err, ErrValidationFailed)

				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tc.field, ve.Field)
				assert.Zero(t, env.store.Len())
			})
		}
	})

	t.Run("duplicate key references the first flag", func(t *testing.T) {
		env := setupService(t)

		first, err := env.service.CreateFlag(ctx, "beta", "Beta Feature", "", false)
		require.NoError(t, err)
		before := env.store.Len()

		_, err = env.service.CreateFlag(ctx, "beta", "Another", "", true)
		require.ErrorIs(t, err, ErrFlagKeyExists)

		var ke *KeyExistsError
		require.ErrorAs(t, err, &ke)
		assert.Equal(t, first.ID, ke.ExistingID)
		assert.Equal(t, "beta", ke.Key)
		assert.Equal(t, before, env.store.Len(), "store must be unchanged")
	})

	t.Run("duplicate detection compares trimmed keys", func(t *testing.T) {
		env := setupService(t)

		_, err := env.service.CreateFlag(ctx, "beta", "Beta", "", false)
		require.NoError(t, err)

		_, err = env.service.CreateFlag(ctx, " beta ", "Beta", "", false)
		assert.ErrorIs(t, err, ErrFlagKeyExists)
	})

	t.Run("keys are case sensitive", func(t *testing.T) {
		env := setupService(t)

		_, err := env.service.CreateFlag(ctx, "beta", "Beta", "", false)
		require.NoError(t, err)
		_, err = env.service.CreateFlag(ctx, "BETA", "Beta", "", false)
		assert.NoError(t, err)
	})

	t.Run("concurrent creates keep keys unique", func(t *testing.T) {
		env := setupService(t)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.service.CreateFlag(ctx, "race", "Race", "", false)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, ErrFlagKeyExists):
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, 24, conflicts)

		flags, err := env.service.GetAllFlags(ctx)
		require.NoError(t, err)
		assert.Len(t, flags, 1)
	})

	t.Run("records an audit entry", func(t *testing.T) {
		env := setupService(t)

		flag, err := env.service.CreateFlag(ContextWithActor(ctx, "alice@example.com"), "beta", "Beta", "", false)
		require.NoError(t, err)

		logs, err := env.service.GetFlagAuditLogs(ctx, flag.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, entity.ActionCreate, logs[0].Action)
		assert.Equal(t, "alice@example.com", logs[0].Actor)
	})
}

func TestFlagService_GetAllFlags(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first regardless of insertion order", func(t *testing.T) {
		env := setupService(t)

		keys := []string{"c", "a", "b"}
		for _, k := range keys {
			_, err := env.service.CreateFlag(ctx, k, "Flag "+k, "", false)
			require.NoError(t, err)
			env.clock.Advance(time.Second)
		}

		flags, err := env.service.GetAllFlags(ctx)
		require.NoError(t, err)
		require.Len(t, flags, 3)
		assert.Equal(t, "b", flags[0].Key)
		assert.Equal(t, "a", flags[1].Key)
		assert.Equal(t, "c", flags[2].Key)
		for i := 1; i < len(flags); i++ {
			assert.False(t, flags[i].CreatedAt.After(flags[i-1].CreatedAt))
		}
	})

	t.Run("equal timestamps tie-break on id", func(t *testing.T) {
		env := setupService(t)

		for _, k := range []string{"x", "y", "z"} {
			_, err := env.service.CreateFlag(ctx, k, k, "", false)
			require.NoError(t, err)
		}

		flags, err := env.service.GetAllFlags(ctx)
		require.NoError(t, err)
		require.Len(t, flags, 3)
		assert.Equal(t, "id-001", flags[0].ID)
		assert.Equal(t, "id-002", flags[1].ID)
		assert.Equal(t, "id-003", flags[2].ID)
	})

	t.Run("empty store", func(t *testing.T) {
		env := setupService(t)

		flags, err := env.service.GetAllFlags(ctx)
		require.NoError(t, err)
		assert.Empty(t, flags)
	})
}

func TestFlagService_GetFlagByKey(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	created, err := env.service.CreateFlag(ctx, "beta", "Beta", "", false)
	require.NoError(t, err)

	got, err := env.service.GetFlagByKey(ctx, "beta")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	missing, err := env.service.GetFlagByKey(ctx, "gamma")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFlagService_UpdateFlag(t *testing.T) {
	ctx := context.Background()

	t.Run("toggle enabled only", func(t *testing.T) {
		env := setupService(t)
		flag, err := env.service.CreateFlag(ctx, "beta", "Beta Feature", "desc", false)
		require.NoError(t, err)
		env.clock.Advance(time.Minute)

		updated, err := env.service.UpdateFlag(ctx, flag.ID, entity.FlagUpdate{Enabled: boolPtr(true)})
		require.NoError(t, err)

		assert.True(t, updated.Enabled)
		assert.Equal(t, "beta", updated.Key)
		assert.Equal(t, "Beta Feature", updated.Name)
		assert.Equal(t, "desc", updated.Description)
		assert.Equal(t, flag.CreatedAt, updated.CreatedAt)
		assert.True(t, updated.UpdatedAt.After(flag.UpdatedAt))

		stored, err := env.service.GetFlag(ctx, flag.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, stored)
	})

	t.Run("updatedAt never goes backwards", func(t *testing.T) {
		env := setupService(t)
		flag, err := env.service.CreateFlag(ctx, "beta", "Beta", "", false)
		require.NoError(t, err)
		env.clock.Advance(-time.Hour)

		updated, err := env.service.UpdateFlag(ctx, flag.ID, entity.FlagUpdate{Name: strPtr("Renamed")})
		require.NoError(t, err)
		assert.False(t, updated.UpdatedAt.Before(flag.UpdatedAt))
		assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
	})

	t.Run("not found", func(t *testing.T) {
		env := setupService(t)

		_, err := env.service.UpdateFlag(ctx, "missing", entity.FlagUpdate{Enabled: boolPtr(true)})
		require.ErrorIs(t, err, ErrFlagNotFound)

		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "missing", nf.ID)
		assert.Zero(t, env.store.Len())
	})

	t.Run("blank key or name", func(t *testing.T) {
		env := setupService(t)
		flag, err := env.service.CreateFlag(ctx, "beta", "Beta", "", false)
		require.NoError(t, err)

		_, err = env.service.UpdateFlag(ctx, flag.ID, entity.FlagUpdate{Key: strPtr("  ")})
		assert.ErrorIs(t, err, ErrValidationFailed)

		_, err = env.service.UpdateFlag(ctx, flag.ID, entity.FlagUpdate{Name: strPtr(""), Enabled: boolPtr(true)})
		assert.ErrorIs(t, err, ErrValidationFailed)

		stored, err := env.service.GetFlag(ctx, flag.ID)
		require.NoError(t, err)
		assert.Equal(t, flag, stored, "rejected updates must not write")
	})

	t.Run("key taken by another flag", func(t *testing.T) {
		env := setupService(t)
		a, err := env.service.CreateFlag(ctx, "alpha", "A", "", false)
		require.NoError(t, err)
		b, err := env.service.CreateFlag(ctx, "bravo", "B", "", false)
		require.NoError(t, err)

		_, err = env.service.UpdateFlag(ctx, b.ID, entity.FlagUpdate{Key: strPtr(" alpha ")})
		require.ErrorIs(t, err, ErrFlagKeyExists)

		var ke *KeyExistsError
		require.ErrorAs(t, err, &ke)
		assert.Equal(t, a.ID, ke.ExistingID)

		stored, err := env.service.GetFlag(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "bravo", stored.Key)
	})

	t.Run("keeping own key is allowed", func(t *testing.T) {
		env := setupService(t)
		flag, err := env.service.CreateFlag(ctx, "beta", "Beta", "", false)
		require.NoError(t, err)

		updated, err := env.service.UpdateFlag(ctx, flag.ID, entity.FlagUpdate{Key: strPtr("beta"), Name: strPtr(" New ")})
		require.NoError(t, err)
		assert.Equal(t, "New", updated.Name)
	})

	t.Run("rename to a free key", func(t *testing.T) {
		env := setupService(t)
		flag, err := env.service.CreateFlag(ctx, "beta", "Beta", "", false)
		require.NoError(t, err)

		updated, err := env.service.UpdateFlag(ctx, flag.ID, entity.FlagUpdate{Key: strPtr("gamma")})
		require.NoError(t, err)
		assert.Equal(t, "gamma", updated.Key)

		old, err := env.service.GetFlagByKey(ctx, "beta")
		require.NoError(t, err)
		assert.Nil(t, old)
	})

	t.Run("audit classifies toggles", func(t *testing.T) {
		env := setupService(t)
		flag, err := env.service.CreateFlag(ctx, "beta", "Beta", "", false)
		require.NoError(t, err)
		env.clock.Advance(time.Second)
		_, err = env.service.UpdateFlag(ctx, flag.ID, entity.FlagUpdate{Enabled: boolPtr(true)})
		require.NoError(t, err)
		env.clock.Advance(time.Second)
		_, err = env.service.UpdateFlag(ctx, flag.ID, entity.FlagUpdate{Name: strPtr("Beta 2")})
		require.NoError(t, err)

		logs, err := env.service.GetFlagAuditLogs(ctx, flag.ID)
		require.NoError(t, err)
		require.Len(t, logs, 3)
		assert.Equal(t, entity.ActionUpdate, logs[0].Action)
		assert.Equal(t, entity.ActionEnable, logs[1].Action)
		assert.Equal(t, entity.ActionCreate, logs[2].Action)
		assert.Equal(t, AnonymousActor, logs[0].Actor)
	})
}

func TestFlagService_DeleteFlag(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the flag", func(t *testing.T) {
		env := setupService(t)
		flag, err := env.service.CreateFlag(ctx, "beta", "Beta", "", false)
		require.NoError(t, err)

		require.NoError(t, env.service.DeleteFlag(ctx, flag.ID))

		_, err = env.service.GetFlag(ctx, flag.ID)
		assert.ErrorIs(t, err, ErrFlagNotFound)

		// the key is free again
		_, err = env.service.CreateFlag(ctx, "beta", "Beta", "", false)
		assert.NoError(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		env := setupService(t)
		err := env.service.DeleteFlag(ctx, "missing")
		assert.ErrorIs(t, err, ErrFlagNotFound)
	})

	t.Run("history survives deletion", func(t *testing.T) {
		env := setupService(t)
		flag, err := env.service.CreateFlag(ctx, "beta", "Beta", "", false)
		require.NoError(t, err)
		env.clock.Advance(time.Second)
		require.NoError(t, env.service.DeleteFlag(ctx, flag.ID))

		logs, err := env.service.GetFlagAuditLogs(ctx, flag.ID)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, entity.ActionDelete, logs[0].Action)
	})
}

func TestFlagService_GetFlagAuditLogs_Unknown(t *testing.T) {
	env := setupService(t)
	_, err := env.service.GetFlagAuditLogs(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrFlagNotFound)
}

// failingRepo returns err from every storage call.
type failingRepo struct {
	err error
}

func (r *failingRepo) List(context.Context) ([]*entity.Flag, error)      { return nil, r.err }
func (r *failingRepo) Get(context.Context, string) (*entity.Flag, error) { return nil, r.err }
func (r *failingRepo) Put(context.Context, string, *entity.Flag) error   { return r.err }
func (r *failingRepo) Delete(context.Context, string) error              { return r.err }
func (r *failingRepo) Atomically(ctx context.Context, fn func(repository.FlagRepository) error) error {
	return fn(r)
}

func TestFlagService_StorageFailures(t *testing.T) {
	ctx := context.Background()
	cause := fmt.Errorf("%w: disk on fire", kvstore.ErrStorage)
	svc := NewFlagService(&failingRepo{err: cause}, nil, logger.NewNop())

	assertStorage := func(t *testing.T, err error, op string) {
		t.Helper()
		require.ErrorIs(t, err, ErrStorage)
		require.ErrorIs(t, err, cause)
		var se *StorageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, op, se.Op)
		assert.Equal(t, KindStorage, KindOf(err))
	}

	_, err := svc.GetAllFlags(ctx)
	assertStorage(t, err, "list flags")

	_, err = svc.GetFlag(ctx, "x")
	assertStorage(t, err, "get flag x")

	_, err = svc.GetFlagByKey(ctx, "k")
	assertStorage(t, err, "list flags")

	_, err = svc.CreateFlag(ctx, "k", "n", "", false)
	assertStorage(t, err, "list flags")

	_, err = svc.UpdateFlag(ctx, "x", entity.FlagUpdate{})
	assertStorage(t, err, "get flag x")

	err = svc.DeleteFlag(ctx, "x")
	assertStorage(t, err, "get flag x")
}

func TestFlagService_StorageFailureOnWrite(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("write failed")
	repo := &writeFailingRepo{FlagRepository: repository.NewFlagRepository(kvstore.Inline(kvstore.NewMemoryStore())), err: cause}
	svc := NewFlagService(repo, nil, logger.NewNop())

	_, err := svc.CreateFlag(ctx, "k", "n", "", false)
	require.ErrorIs(t, err, ErrStorage)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "create flag k", se.Op)
	assert.ErrorIs(t, err, cause)
}

type writeFailingRepo struct {
	repository.FlagRepository
	err error
}

func (r *writeFailingRepo) Put(context.Context, string, *entity.Flag) error { return r.err }

func (r *writeFailingRepo) Atomically(ctx context.Context, fn func(repository.FlagRepository) error) error {
	return fn(r)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidationFailed, KindOf(&ValidationError{Field: "key"}))
	assert.Equal(t, KindFlagKeyExists, KindOf(fmt.Errorf("wrapped: %w", &KeyExistsError{})))
	assert.Equal(t, KindFlagNotFound, KindOf(&NotFoundError{}))
	assert.Equal(t, KindStorage, KindOf(&StorageError{Op: "x"}))
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "unknown", ErrorKind(0).String())
}

func TestActorFromContext(t *testing.T) {
	assert.Equal(t, AnonymousActor, ActorFromContext(context.Background()))
	assert.Equal(t, AnonymousActor, ActorFromContext(ContextWithActor(context.Background(), "")))
	assert.Equal(t, "bob", ActorFromContext(ContextWithActor(context.Background(), "bob")))
}
