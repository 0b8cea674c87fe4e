// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSecretKey is only acceptable outside production.
const DefaultSecretKey = "dev-secret-key-change-in-production"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StoreConfig selects the persistence backend: gorm, sql or rest.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// DatabaseConfig holds relational connection settings for the gorm and sql backends.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres or sqlite
	URL          string `mapstructure:"url"`    // DATABASE_URL, overrides the parts below
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	Debug        bool   `mapstructure:"debug"`
}

// SupabaseConfig holds the hosted backend settings for the rest backend.
type SupabaseConfig struct {
	URL     string        `mapstructure:"url"`
	AnonKey string        `mapstructure:"anon_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	BcryptCost    int    `mapstructure:"bcrypt_cost"`
	SessionSecure bool   `mapstructure:"session_secure"`
}

// RedisConfig enables login throttling when Addr is set.
type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	LoginRateLimit int           `mapstructure:"login_rate_limit"`
	LoginWindow    time.Duration `mapstructure:"login_rate_window"`
}

// BrokerConfig enables RabbitMQ event publishing when URL is set.
type BrokerConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env        string `mapstructure:"env"`
	Migrations bool   `mapstructure:"migrations"`
	Seed       bool   `mapstructure:"seed"`
}

func (a AppConfig) IsProduction() bool { return a.Env == "production" }

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// binding maps a config key to its environment variable and default.
type binding struct {
	key string
	env string
	def any
}

var bindings = []binding{
	{"server.port", "PORT", "8080"},
	{"server.read_timeout", "SERVER_READ_TIMEOUT", "15s"},
	{"server.write_timeout", "SERVER_WRITE_TIMEOUT", "15s"},
	{"server.idle_timeout", "SERVER_IDLE_TIMEOUT", "60s"},

	{"store.backend", "STORE_BACKEND", "gorm"},

	{"database.driver", "DB_DRIVER", "postgres"},
	{"database.url", "DATABASE_URL", ""},
	{"database.host", "DB_HOST", "localhost"},
	{"database.port", "DB_PORT", 5432},
	{"database.user", "DB_USER", "tutoring"},
	{"database.password", "DB_PASSWORD", "tutoring123"},
	{"database.name", "DB_NAME", "tutoring"},
	{"database.sslmode", "DB_SSLMODE", "disable"},
	{"database.sqlite_path", "SQLITE_PATH", "tutoring.db"},
	{"database.max_open_conns", "DB_MAX_OPEN_CONNS", 25},
	{"database.max_idle_conns", "DB_MAX_IDLE_CONNS", 5},
	{"database.debug", "DB_DEBUG", false},

	{"supabase.url", "VITE_SUPABASE_URL", ""},
	{"supabase.anon_key", "VITE_SUPABASE_ANON_KEY", ""},
	{"supabase.timeout", "SUPABASE_TIMEOUT", "10s"},

	{"auth.secret_key", "SECRET_KEY", DefaultSecretKey},
	{"auth.bcrypt_cost", "BCRYPT_COST", bcrypt.DefaultCost},
	{"auth.session_secure", "SESSION_SECURE", false},

	{"redis.addr", "REDIS_ADDR", ""},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"redis.db", "REDIS_DB", 0},
	{"redis.login_rate_limit", "LOGIN_RATE_LIMIT", 10},
	{"redis.login_rate_window", "LOGIN_RATE_WINDOW", "1m"},

	{"broker.url", "RABBITMQ_URL", ""},
	{"broker.queue", "RABBITMQ_QUEUE", "tutoring.sessions"},

	{"app.env", "APP_ENV", "development"},
	{"app.migrations", "MIGRATIONS", false},
	{"app.seed", "DB_SEED", true},
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() (*Config, error) {
	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case "gorm", "sql", "rest":
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND: unknown backend %q", c.Store.Backend))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unknown driver %q", c.Database.Driver))
	}
	if c.Store.Backend == "sql" && c.Database.Driver != "postgres" {
		errs = append(errs, errors.New("STORE_BACKEND=sql requires DB_DRIVER=postgres"))
	}
	if c.Store.Backend == "rest" && (c.Supabase.URL == "" || c.Supabase.AnonKey == "") {
		errs = append(errs, errors.New("STORE_BACKEND=rest requires VITE_SUPABASE_URL and VITE_SUPABASE_ANON_KEY"))
	}
	if c.Auth.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY must not be empty"))
	}
	if c.App.IsProduction() && c.Auth.SecretKey == DefaultSecretKey {
		errs = append(errs, errors.New("SECRET_KEY must be changed in production"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST: %d out of range", c.Auth.BcryptCost))
	}
	return errors.Join(errs...)
}
