package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centralises every runtime setting so the rest of the codebase can remain deterministic
// and easy to test. All fields can be overridden using environment variables.
type Config struct {
	AppName  string         `env:"APP_NAME" envDefault:"field-board-api"`
	Env      string         `env:"APP_ENV" envDefault:"development"`
	LogLevel string         `env:"LOG_LEVEL" envDefault:"info"`
	HTTP     HTTPConfig     `envPrefix:"HTTP_"`
	Solver   SolverConfig   `envPrefix:"SOLVER_"`
	Auth     AuthConfig     `envPrefix:"AUTH_"`
	Database DatabaseConfig `envPrefix:"DB_"`
}

// HTTPConfig controls the HTTP server behaviour.
type HTTPConfig struct {
	Address      string        `env:"ADDRESS" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

// SolverConfig points at the remote vehicle-routing service. An empty BaseURL
// means remote optimization is unconfigured; local/demo display still works.
type SolverConfig struct {
	BaseURL          string        `env:"BASE_URL"`
	APIKey           string        `env:"API_KEY"`
	MapConfigID      string        `env:"MAP_CONFIG_ID" envDefault:"EUROPE"`
	TerminationLimit string        `env:"TERMINATION_LIMIT"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	PollDeadline     time.Duration `env:"POLL_DEADLINE" envDefault:"5m"`
}

// AuthConfig groups the Keycloak settings. Authentication is optional so the
// dashboard can run on a trusted LAN without an identity provider.
type AuthConfig struct {
	Enabled   bool   `env:"ENABLED" envDefault:"false"`
	URL       string `env:"KEYCLOAK_URL" envDefault:"http://localhost:8180"`
	PublicURL string `env:"KEYCLOAK_PUBLIC_URL" envDefault:"http://localhost:8180"`
	Realm     string `env:"KEYCLOAK_REALM" envDefault:"field-board"`
}

// DatabaseConfig groups the optional Postgres settings for run history. An
// empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL             string        `env:"URL"`
	RunMigrations   bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	MigrationsDir   string        `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"10"`
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"5m"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"30m"`
}

// Load reads configuration from the environment, applying defaults defined above.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
