// Package config loads service configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StrategyPessimistic = "pessimistic"
	StrategyOptimistic  = "optimistic"

	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Env      string   `yaml:"env"`
	Store    string   `yaml:"store"`
	HTTP     HTTP     `yaml:"http"`
	Database Database `yaml:"database"`
	Booking  Booking  `yaml:"booking"`
	Auth     Auth     `yaml:"auth"`
}

type HTTP struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`

	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// Booking tunes the reservation guard.
type Booking struct {
	Strategy    string        `yaml:"strategy"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Default returns local-development defaults.
func Default() Config {
	return Config{
		Env:   "local",
		Store: StorePostgres,
		HTTP: HTTP{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,

			AllowedOrigins: []string{"*"},
		},
		Database: Database{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Password:        "postgres",
			DBName:          "eventbooking",
			SSLMode:         "disable",
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
		},
		Booking: Booking{
			Strategy:    StrategyPessimistic,
			LockTimeout: 3 * time.Second,
			MaxRetries:  5,
		},
		Auth: Auth{
			JWTSecret: "dev-secret",
			TokenTTL:  time.Hour,
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment variables are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Env = getEnv("ENV", c.Env)
	c.Store = getEnv("STORE", c.Store)
	c.HTTP.Port = getEnv("PORT", c.HTTP.Port)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.HTTP.AllowedOrigins = strings.Split(v, ",")
	}

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.Booking.Strategy = getEnv("BOOKING_STRATEGY", c.Booking.Strategy)
	if v := os.Getenv("BOOKING_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BOOKING_LOCK_TIMEOUT: %w", err)
		}
		c.Booking.LockTimeout = d
	}
	if v := os.Getenv("BOOKING_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOOKING_MAX_RETRIES: %w", err)
		}
		c.Booking.MaxRetries = n
	}

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	return nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	switch c.Booking.Strategy {
	case StrategyPessimistic, StrategyOptimistic:
	default:
		errs = append(errs, fmt.Errorf("unknown booking strategy %q", c.Booking.Strategy))
	}
	if c.Booking.LockTimeout < 0 {
		errs = append(errs, errors.New("booking lock timeout must not be negative"))
	}
	if c.Booking.MaxRetries < 1 {
		errs = append(errs, errors.New("booking max retries must be at least 1"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.HTTP.Port == "" {
		errs = append(errs, errors.New("http port is required"))
	}
	return errors.Join(errs...)
}

// DSN builds a postgres:// connection URL accepted by both pgx and
// golang-migrate.
func (d Database) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
