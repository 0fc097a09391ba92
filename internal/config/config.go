// Package config manages environment variables.
//
// It reads variables from the `.env` file and the process environment,
// loads them into structured Go types and validates that required values
// are present so they can be reused across the application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (e.g. observability).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process env before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"
)

/*
	Env vars are read using the ESCUELA_ prefix. The prefix is removed, the
	rest is lowercased and every double underscore becomes a "." so nested
	struct fields can be addressed:

	ESCUELA_SERVER__PORT       -> server.port       -> Config.Server.Port
	ESCUELA_AUTH__SECRET_KEY   -> auth.secret_key   -> Config.Auth.SecretKey
*/

const envPrefix = "ESCUELA_"

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Admin         AdminConfig          `koanf:"admin" validate:"required"`
	Storage       StorageConfig        `koanf:"storage"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details.
// Address is "host:port". Empty disables login throttling and background jobs.
type RedisConfig struct {
	Address string `koanf:"address"`
}

// AuthConfig stores token signing and login throttling settings.
type AuthConfig struct {
	SecretKey        string        `koanf:"secret_key" validate:"required,min=16"`
	MaxLoginAttempts int           `koanf:"max_login_attempts" validate:"gte=0"`
	LoginWindow      time.Duration `koanf:"login_window"`
}

// AdminConfig is the single administrator identity.
//
// PasswordHash is a bcrypt hash (see `escuela hash-password`). Password is
// accepted for local setups only and is hashed once during Load, before any
// listener is started.
type AdminConfig struct {
	Username     string `koanf:"username" validate:"required"`
	PasswordHash string `koanf:"password_hash"`
	Password     string `koanf:"password"`
}

// StorageConfig controls where uploaded photos live.
type StorageConfig struct {
	UploadsDir    string `koanf:"uploads_dir"`
	PublicPath    string `koanf:"public_path"`
	MaxUploadSize int64  `koanf:"max_upload_size"`
}

const (
	DefaultMaxLoginAttempts = 5
	DefaultLoginWindow      = 15 * time.Minute
	DefaultUploadsDir       = "uploads"
	DefaultPublicPath       = "/uploads"
	DefaultMaxUploadSize    = 5 << 20
)

// listKeys are koanf keys whose env value is a comma separated list.
var listKeys = map[string]bool{
	"server.cors_allowed_origins":        true,
	"observability.health_checks.checks": true,
}

// envKey maps ESCUELA_SERVER__READ_TIMEOUT to server.read_timeout.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

// LoadConfig loads configuration from environment variables, unmarshals it
// into Config, validates it, applies defaults and resolves the admin
// credential.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = envKey(key)
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	mainConfig.applyDefaults()

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}
	mainConfig.Observability.ServiceName = "escuela"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	if err := mainConfig.Admin.resolve(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.MaxLoginAttempts == 0 {
		c.Auth.MaxLoginAttempts = DefaultMaxLoginAttempts
	}
	if c.Auth.LoginWindow <= 0 {
		c.Auth.LoginWindow = DefaultLoginWindow
	}
	if c.Admin.Username == "" {
		c.Admin.Username = "admin"
	}
	if c.Storage.UploadsDir == "" {
		c.Storage.UploadsDir = DefaultUploadsDir
	}
	if c.Storage.PublicPath == "" {
		c.Storage.PublicPath = DefaultPublicPath
	}
	if c.Storage.MaxUploadSize <= 0 {
		c.Storage.MaxUploadSize = DefaultMaxUploadSize
	}
}

// resolve makes sure PasswordHash holds a usable bcrypt hash.
func (a *AdminConfig) resolve() error {
	if a.PasswordHash == "" {
		if a.Password == "" {
			return fmt.Errorf("admin.password_hash is required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}
		a.PasswordHash = string(hash)
		a.Password = ""
		return nil
	}

	if _, err := bcrypt.Cost([]byte(a.PasswordHash)); err != nil {
		return fmt.Errorf("admin.password_hash is not a bcrypt hash: %w", err)
	}
	a.Password = ""
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
