// Package config reads process settings from the environment once, at
// startup. The resulting values are passed explicitly into each tool; nothing
// below cmd/ reads the environment on its own.
package config

import (
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/djb258/client-sub001/internal/errs"
)

// DefaultRegistryPath is the project-relative location of the column registry.
const DefaultRegistryPath = "src/data/db/registry/clnt_column_registry.yml"

// Config holds the settings shared by every tool.
type Config struct {
	Root         string `env:"REGISTRY_ROOT" env-default:"."`
	RegistryPath string `env:"REGISTRY_PATH" env-default:"src/data/db/registry/clnt_column_registry.yml"`
	Environment  string `env:"APP_ENV,NODE_ENV" env-default:"development"`
	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat    string `env:"LOG_FORMAT" env-default:"json"`
}

// Production reports whether the environment marker names production.
func (c *Config) Production() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Gateway holds the remote gateway credential and endpoint.
type Gateway struct {
	URL     string        `env:"COMPOSIO_SERVER_URL" env-required:"true"`
	APIKey  string        `env:"COMPOSIO_API_KEY" env-required:"true"`
	Timeout time.Duration `env:"GATEWAY_TIMEOUT" env-default:"30s"`
}

// Migrations describes where migration SQL is read from. When Bucket is set
// the files come from object storage instead of Dir.
type Migrations struct {
	Dir    string `env:"MIGRATIONS_DIR" env-default:"db/neon"`
	Bucket string `env:"MIGRATIONS_BUCKET"`
	Prefix string `env:"MIGRATIONS_PREFIX"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
	MinIORegion    string `env:"MINIO_REGION"`
}

// Server holds the local gateway (gatewayd) settings.
type Server struct {
	Addr           string        `env:"GATEWAYD_ADDR" env-default:":8089"`
	APIKey         string        `env:"GATEWAYD_API_KEY" env-required:"true"`
	DatabaseDriver string        `env:"DATABASE_DRIVER" env-default:"postgres"`
	DatabaseURL    string        `env:"DATABASE_URL" env-required:"true"`
	QueryTimeout   time.Duration `env:"GATEWAYD_QUERY_TIMEOUT" env-default:"30s"`
	CORSOrigins    []string      `env:"GATEWAYD_CORS_ORIGINS" env-separator:","`
}

// Load reads the shared settings.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindConfig, "read environment", err)
	}
	return &cfg, nil
}

// LoadGateway reads the gateway settings. A missing URL or credential is a
// startup precondition failure, not a runtime error.
func LoadGateway() (*Gateway, error) {
	var gw Gateway
	if err := cleanenv.ReadEnv(&gw); err != nil {
		return nil, errs.Wrap(errs.ErrKindConfig, "gateway settings (COMPOSIO_SERVER_URL, COMPOSIO_API_KEY)", err)
	}
	if strings.TrimSpace(gw.URL) == "" || strings.TrimSpace(gw.APIKey) == "" {
		return nil, errs.New(errs.ErrKindConfig, "COMPOSIO_SERVER_URL and COMPOSIO_API_KEY must be non-empty")
	}
	if gw.Timeout <= 0 {
		return nil, errs.Newf(errs.ErrKindConfig, "GATEWAY_TIMEOUT must be positive, got %s", gw.Timeout)
	}
	gw.URL = strings.TrimRight(gw.URL, "/")
	return &gw, nil
}

// LoadMigrations reads the migration source settings.
func LoadMigrations() (*Migrations, error) {
	var m Migrations
	if err := cleanenv.ReadEnv(&m); err != nil {
		return nil, errs.Wrap(errs.ErrKindConfig, "migration settings", err)
	}
	return &m, nil
}

// LoadServer reads the gatewayd settings.
func LoadServer() (*Server, error) {
	var s Server
	if err := cleanenv.ReadEnv(&s); err != nil {
		return nil, errs.Wrap(errs.ErrKindConfig, "gatewayd settings", err)
	}
	return &s, nil
}
