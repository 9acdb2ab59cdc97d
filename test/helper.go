package test

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"cloth/auth"
	"cloth/config"
	"cloth/controller"
	"cloth/entity"
	"cloth/handler"
	"cloth/kvstore"
	"cloth/pkg/logger"
	"cloth/repository"
	"cloth/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// TestApp is a fully wired application over one storage partition
type TestApp struct {
	App       *echo.Echo
	Partition *kvstore.Partition
}

// AppOption customizes SetupTestApp
type AppOption func(*appOptions)

type appOptions struct {
	backend  string
	dbPath   string
	verifier *auth.Verifier
}

// WithBackend selects the storage backend: memory, sqlite or postgres.
func WithBackend(backend string) AppOption {
	return func(o *appOptions) { o.backend = backend }
}

// WithSQLitePath stores sqlite data in a file instead of memory.
func WithSQLitePath(path string) AppOption {
	return func(o *appOptions) { o.dbPath = path }
}

// WithVerifier enables token verification on flag routes.
func WithVerifier(v *auth.Verifier) AppOption {
	return func(o *appOptions) { o.verifier = v }
}

// SetupTestApp builds the application the way cmd/main.go does
func SetupTestApp(t *testing.T, opts ...AppOption) *TestApp {
	t.Helper()
	o := appOptions{backend: "memory", dbPath: ":memory:"}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &config.Config{
		Application: config.Application{Name: "cloth", Version: "test"},
		Storage: config.Storage{
			Backend:    o.backend,
			Partition:  kvstore.DefaultPartition,
			SQLitePath: o.dbPath,
		},
		Swagger: config.Swagger{Enabled: false}, // Disable swagger for tests
		Auth: config.Auth{
			Enabled: o.verifier != nil,
			Header:  auth.DefaultHeader,
		},
	}
	if o.backend == "postgres" {
		cfg.Database = testDatabaseConfig(t)
		// each test owns a partition of the shared table
		cfg.Storage.Partition = fmt.Sprintf("test-%d", time.Now().UnixNano())
	}

	log := GetTestLogger()
	partition, err := kvstore.Open(cfg, log)
	require.NoError(t, err, "Failed to open test storage")
	t.Cleanup(func() { partition.Close() })

	flagService := service.NewFlagService(
		repository.NewFlagRepository(partition),
		repository.NewAuditRepository(partition),
		log,
	)

	app := echo.New()
	handler.RegisterRoutes(app, handler.Controllers{
		Flag:   controller.NewFlagController(flagService, log),
		Health: controller.NewHealthController(cfg.Application.Name, cfg.Application.Version),
	}, o.verifier, cfg, log)

	return &TestApp{App: app, Partition: partition}
}

// testDatabaseConfig reads the postgres test target, skipping the test when
// no database is configured.
func testDatabaseConfig(t *testing.T) config.Database {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set; skipping postgres integration test")
	}
	port, err := strconv.Atoi(getEnvOrDefault("TEST_DB_PORT", "5432"))
	require.NoError(t, err)

	return config.Database{
		Host:     host,
		Port:     port,
		User:     getEnvOrDefault("TEST_DB_USER", "cloth"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "cloth"),
		Name:     getEnvOrDefault("TEST_DB_NAME", "cloth_test"),
		SSLMode:  "disable",
	}
}

// Response is the decoded JSON envelope
type Response struct {
	Code    int                   `json:"-"`
	Success bool                  `json:"success"`
	Data    json.RawMessage       `json:"data"`
	Error   *controller.ErrorBody `json:"error"`
}

// Do sends a request to the app and decodes the envelope
func (ta *TestApp) Do(t *testing.T, method, path string, body interface{}, headers map[string]string) Response {
	t.Helper()
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ta.App.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	resp.Code = rec.Code
	return resp
}

// CreateTestFlag creates a flag through the API
func (ta *TestApp) CreateTestFlag(t *testing.T, key, name string, enabled bool, headers map[string]string) *entity.Flag {
	t.Helper()
	resp := ta.Do(t, http.MethodPost, "/api/flag", map[string]interface{}{
		"key":     key,
		"name":    name,
		"enabled": enabled,
	}, headers)
	require.Equal(t, http.StatusCreated, resp.Code, "Failed to create test flag: %+v", resp.Error)
	return DecodeFlag(t, resp)
}

// DecodeFlag decodes a single flag payload
func DecodeFlag(t *testing.T, resp Response) *entity.Flag {
	t.Helper()
	var flag entity.Flag
	require.NoError(t, json.Unmarshal(resp.Data, &flag))
	return &flag
}

// DecodeFlags decodes a flag list payload
func DecodeFlags(t *testing.T, resp Response) []entity.Flag {
	t.Helper()
	var flags []entity.Flag
	require.NoError(t, json.Unmarshal(resp.Data, &flags))
	return flags
}

// DecodeAuditLogs decodes an audit log list payload
func DecodeAuditLogs(t *testing.T, resp Response) []entity.AuditLog {
	t.Helper()
	var logs []entity.AuditLog
	require.NoError(t, json.Unmarshal(resp.Data, &logs))
	return logs
}

// TokenIssuer signs RS256 tokens and publishes its key set over HTTP
type TokenIssuer struct {
	Server   *httptest.Server
	Audience string
	kid      string
	key      *rsa.PrivateKey
}

// NewTokenIssuer starts a key set server for a fresh RSA key
func NewTokenIssuer(t *testing.T, audience string) *TokenIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ti := &TokenIssuer{Audience: audience, kid: "test-key", key: key}
	ti.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(auth.KeySet{Keys: []auth.JWK{{
			Kid: ti.kid,
			Kty: "RSA",
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}}})
	}))
	t.Cleanup(ti.Server.Close)
	return ti
}

// Verifier returns a verifier trusting this issuer
func (ti *TokenIssuer) Verifier() *auth.Verifier {
	return auth.NewVerifier(
		auth.Config{Audience: ti.Audience, FetchTimeout: 2 * time.Second},
		auth.NewHTTPKeySetFetcher(ti.Server.URL, ti.Server.Client()),
		GetTestLogger(),
	)
}

// Token signs a token for email with the given audience and lifetime
func (ti *TokenIssuer) Token(t *testing.T, email, audience string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":   fmt.Sprintf("sub-%s", email),
		"email": email,
		"aud":   audience,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	})
	token.Header["kid"] = ti.kid
	signed, err := token.SignedString(ti.key)
	require.NoError(t, err)
	return signed
}

// AuthHeader returns the request header carrying a valid token for email
func (ti *TokenIssuer) AuthHeader(t *testing.T, email string) map[string]string {
	return map[string]string{auth.DefaultHeader: ti.Token(t, email, ti.Audience, time.Hour)}
}

// GetTestLogger creates a test logger
func GetTestLogger() *logger.Logger {
	log, err := logger.New("debug", "development")
	if err != nil {
		panic(fmt.Sprintf("Failed to create test logger: %v", err))
	}
	return log
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
