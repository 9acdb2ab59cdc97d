package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Application struct {
	Name                    string
	Version                 string
	GracefulShutdownTimeout time.Duration
}

type HTTPServer struct {
	Port int
}

// Storage selects the key/value backend: memory, postgres or sqlite.
type Storage struct {
	Backend    string
	Partition  string
	SQLitePath string
}

type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Logger struct {
	Level string
	Mode  string // development or production
}

type Swagger struct {
	Enabled bool `json:"enabled"`
}

// Auth configures verification of identity-provider tokens on /api/flag routes.
type Auth struct {
	Enabled      bool
	TeamDomain   string
	KeysURL      string
	Audience     string
	Header       string
	FetchTimeout time.Duration
	KeysCacheTTL time.Duration
}

type Config struct {
	Application Application
	HTTPServer  HTTPServer
	Storage     Storage
	Database    Database
	Logger      Logger
	Swagger     Swagger
	Auth        Auth
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Application: Application{
			Name:                    getEnvWithDefault("APPLICATION_NAME", "cloth"),
			Version:                 getEnvWithDefault("APPLICATION_VERSION", "0.0.0"),
			GracefulShutdownTimeout: parseDurationWithDefault("APPLICATION_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		HTTPServer: HTTPServer{
			Port: parseIntWithDefault("HTTP_SERVER_PORT", 8080),
		},
		Storage: Storage{
			Backend:    strings.ToLower(getEnvWithDefault("STORAGE_BACKEND", "sqlite")),
			Partition:  getEnvWithDefault("STORAGE_PARTITION", "default"),
			SQLitePath: getEnvWithDefault("STORAGE_SQLITE_PATH", "cloth.db"),
		},
		Database: Database{
			Host:     getEnvWithDefault("DATABASE_HOST", "db"),
			Port:     parseIntWithDefault("DATABASE_PORT", 5432),
			User:     getEnvWithDefault("DATABASE_USER", "cloth"),
			Password: getEnvWithDefault("DATABASE_PASSWORD", "cloth"),
			Name:     getEnvWithDefault("DATABASE_NAME", "cloth"),
			SSLMode:  getEnvWithDefault("DATABASE_SSL_MODE", "disable"),
		},
		Logger: Logger{
			Level: getEnvWithDefault("LOGGER_LEVEL", "info"),
			Mode:  getEnvWithDefault("LOGGER_MODE", "production"),
		},
		Swagger: Swagger{
			Enabled: getEnvBoolWithDefault("SWAGGER_ENABLED", true),
		},
		Auth: Auth{
			Enabled:      getEnvBoolWithDefault("AUTH_ENABLED", false),
			TeamDomain:   os.Getenv("CF_ACCESS_TEAM_DOMAIN"),
			KeysURL:      os.Getenv("AUTH_KEYS_URL"),
			Audience:     os.Getenv("CF_ACCESS_AUD"),
			Header:       getEnvWithDefault("AUTH_HEADER", "Cf-Access-Jwt-Assertion"),
			FetchTimeout: parseDurationWithDefault("AUTH_FETCH_TIMEOUT", 5*time.Second),
			KeysCacheTTL: parseDurationWithDefault("AUTH_KEYS_CACHE_TTL", 0),
		},
	}

	// Support legacy environment variables
	if port := os.Getenv("APP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.HTTPServer.Port = p
		}
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		cfg.Database.User = user
	}
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if name := os.Getenv("POSTGRES_DB"); name != "" {
		cfg.Database.Name = name
	}

	if cfg.Auth.KeysURL == "" && cfg.Auth.TeamDomain != "" {
		cfg.Auth.KeysURL = fmt.Sprintf("https://%s.cloudflareaccess.com/cdn-cgi/access/certs", cfg.Auth.TeamDomain)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Partition) == "" {
		return fmt.Errorf("storage partition must not be empty")
	}
	if c.Auth.Enabled {
		if c.Auth.KeysURL == "" {
			return fmt.Errorf("auth enabled but neither AUTH_KEYS_URL nor CF_ACCESS_TEAM_DOMAIN is set")
		}
		if c.Auth.Audience == "" {
			return fmt.Errorf("auth enabled but CF_ACCESS_AUD is not set")
		}
	}
	return nil
}

// ConnectionString returns the lib/pq keyword connection string.
func (d Database) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Redacted returns a URL form of the connection target without the password,
// suitable for logging.
func (d Database) Redacted() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(d.User),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
