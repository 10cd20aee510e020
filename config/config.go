package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port string `env:"PORT" envDefault:"8080" validate:"required"`

	// Empty in local falls back to the in-memory store.
	DatabaseURL string `env:"DATABASE_URL" validate:"required_unless=Env local"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// Lifecycle feature switches
	RegistrationsEnabled bool `env:"REGISTRATIONS_ENABLED" envDefault:"true"`
	ConfirmRegistrations bool `env:"CONFIRM_REGISTRATIONS" envDefault:"false"`
	InviteEnabled        bool `env:"INVITE_ENABLED" envDefault:"false"`
	ForgetEnabled        bool `env:"FORGET_ENABLED" envDefault:"false"`
	UsernameRequired     bool `env:"USERNAME_REQUIRED" envDefault:"false"`
	WelcomeEmail         bool `env:"WELCOME_EMAIL" envDefault:"false"`

	// DevMode echoes confirmation tokens in API responses. Never enable it
	// outside local.
	DevMode bool `env:"DEV_MODE" envDefault:"false"`

	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"24h"`
	SweepSchedule string        `env:"SWEEP_SCHEDULE" envDefault:"@hourly"`

	Language   string `env:"LANGUAGE" envDefault:"en" validate:"oneof=en fr"`
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	JWTSecret string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"72h"`

	ResendAPIKey  string `env:"RESEND_API_KEY"`
	ResendFrom    string `env:"RESEND_FROM"`
	MailQueueSize int    `env:"MAIL_QUEUE_SIZE" envDefault:"64" validate:"min=1,max=4096"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Env != "local" {
		if cfg.DevMode {
			return nil, errors.New("DEV_MODE must not be enabled outside local")
		}
		if cfg.ResendAPIKey == "" && cfg.needsMailer() {
			return nil, errors.New("RESEND_API_KEY is not set but an enabled feature sends email")
		}
		if cfg.ResendAPIKey != "" && cfg.ResendFrom == "" {
			return nil, errors.New("RESEND_FROM is required when RESEND_API_KEY is set")
		}
	}

	return cfg, nil
}

// needsMailer reports whether any enabled feature depends on outbound email.
func (c *Config) needsMailer() bool {
	return c.ConfirmRegistrations || c.InviteEnabled || c.ForgetEnabled || c.WelcomeEmail
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
