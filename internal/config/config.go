// Package config loads the server configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/mmynk/signin/internal/clock"
	"github.com/mmynk/signin/internal/models"
)

// Config is the complete server configuration.
type Config struct {
	Port int `validate:"gt=0,lt=65536"`

	// StorageDriver selects the backend: "sqlite" (DBPath) or "postgres" (DatabaseURL).
	StorageDriver string `validate:"oneof=sqlite postgres"`
	DBPath        string `validate:"required_if=StorageDriver sqlite"`
	DatabaseURL   string `validate:"required_if=StorageDriver postgres"`

	TimeZone string     `validate:"required"`
	Zone     clock.Zone `validate:"-"`

	AutoSignout     models.AutoSignoutPolicy `validate:"oneof=None Credit Discard"`
	SignoutInterval time.Duration            `validate:"gt=0"`

	// PreEventMinutes and PostEventMinutes are the grace defaults for new events.
	PreEventMinutes  int `validate:"gte=0"`
	PostEventMinutes int `validate:"gte=0"`

	JWTSecret     string        `validate:"required_unless=AuthDisabled true"`
	TokenDuration time.Duration `validate:"gt=0"`
	AuthDisabled  bool

	// RabbitMQURL enables transition publishing when set.
	RabbitMQURL string `validate:"omitempty,url"`

	LogLevel string `validate:"oneof=debug info warn error"`
}

// Load reads envFile when it exists, then the process environment. Variables
// already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var errs []error
	cfg := &Config{
		Port:             getInt("PORT", 8080, &errs),
		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", "sqlite")),
		DBPath:           getEnv("DB_PATH", "./data/signin.db"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		TimeZone:         getEnv("TIME_ZONE", "America/New_York"),
		SignoutInterval:  getDuration("SIGNOUT_INTERVAL", 30*time.Second, &errs),
		PreEventMinutes:  getInt("PRE_EVENT_MINUTES", 30, &errs),
		PostEventMinutes: getInt("POST_EVENT_MINUTES", 30, &errs),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		TokenDuration:    getDuration("TOKEN_DURATION", 24*time.Hour, &errs),
		AuthDisabled:     getBool("AUTH_DISABLED", false, &errs),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	policy, err := models.ParsePolicy(getEnv("AUTO_SIGNOUT_BEHAVIOR", "None"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.AutoSignout = policy

	zone, err := clock.LoadZone(cfg.TimeZone)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Zone = zone

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getBool(key string, fallback bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
