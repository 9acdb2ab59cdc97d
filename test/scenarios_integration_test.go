package test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"cloth/controller"
	"cloth/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPostgresScenario_FlagLifecycle runs the full lifecycle against postgres.
// Set TEST_DB_HOST (and optionally TEST_DB_PORT, TEST_DB_USER, TEST_DB_PASSWORD,
// TEST_DB_NAME) to enable it.
func TestPostgresScenario_FlagLifecycle(t *testing.T) {
	app := SetupTestApp(t, WithBackend("postgres"))

	created := app.CreateTestFlag(t, "checkout_v2", "Checkout v2", false, map[string]string{"X-Actor": "ops"})

	t.Run("duplicate key", func(t *testing.T) {
		resp := app.Do(t, http.MethodPost, "/api/flag", map[string]string{"key": "checkout_v2", "name": "Again"}, nil)
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, controller.CodeFlagKeyExists, resp.Error.Code)
	})

	t.Run("lookup by key", func(t *testing.T) {
		got := DecodeFlag(t, app.Do(t, http.MethodGet, "/api/flag/key/checkout_v2", nil, nil))
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("enable and disable", func(t *testing.T) {
		resp := app.Do(t, http.MethodPut, "/api/flag/"+created.ID, map[string]bool{"enabled": true}, map[string]string{"X-Actor": "ops"})
		require.Equal(t, http.StatusOK, resp.Code)
		resp = app.Do(t, http.MethodPut, "/api/flag/"+created.ID, map[string]bool{"enabled": false}, map[string]string{"X-Actor": "ops"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.False(t, DecodeFlag(t, resp).Enabled)
	})

	t.Run("delete and audit", func(t *testing.T) {
		resp := app.Do(t, http.MethodDelete, "/api/flag/"+created.ID, nil, map[string]string{"X-Actor": "ops"})
		require.Equal(t, http.StatusOK, resp.Code)

		logs := DecodeAuditLogs(t, app.Do(t, http.MethodGet, "/api/flag/"+created.ID+"/audit", nil, nil))
		require.Len(t, logs, 4)
		assert.Equal(t, []entity.AuditAction{
			entity.ActionDelete, entity.ActionDisable, entity.ActionEnable, entity.ActionCreate,
		}, []entity.AuditAction{logs[0].Action, logs[1].Action, logs[2].Action, logs[3].Action})
		for _, log := range logs {
			assert.Equal(t, "ops", log.Actor)
		}
	})
}

// TestSQLiteScenario_SurvivesRestart tests that flags written to a sqlite file
// are served again by a freshly started application
func TestSQLiteScenario_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloth.db")

	first := SetupTestApp(t, WithBackend("sqlite"), WithSQLitePath(path))
	created := first.CreateTestFlag(t, "beta", "Beta Feature", true, nil)
	require.NoError(t, first.Partition.Close())

	second := SetupTestApp(t, WithBackend("sqlite"), WithSQLitePath(path))
	resp := second.Do(t, http.MethodGet, "/api/flag/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	got := DecodeFlag(t, resp)
	assert.Equal(t, "beta", got.Key)
	assert.True(t, got.Enabled)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	resp = second.Do(t, http.MethodPost, "/api/flag", map[string]string{"key": "beta", "name": "Dup"}, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

// TestScenario_MetricsEndpoint tests that request and flag counters are exposed
func TestScenario_MetricsEndpoint(t *testing.T) {
	app := SetupTestApp(t)
	app.CreateTestFlag(t, "beta", "Beta", false, nil)

	rec := httptest.NewRecorder()
	app.App.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `cloth_http_requests_total{method="POST",path="/api/flag",status="201"}`)
	assert.Contains(t, body, `cloth_flags_operations_total{operation="create",result="ok"}`)
}
