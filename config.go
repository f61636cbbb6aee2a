package authcore

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"4000"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	JWTSecret string `env:"JWT_SECRET"`

	BackendURL  string `env:"BACKEND_URL" envDefault:"http://localhost:4000"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	FacebookAppID     string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret string `env:"FACEBOOK_APP_SECRET"`

	LinkedinClientID     string `env:"LINKEDIN_CLIENT_ID"`
	LinkedinClientSecret string `env:"LINKEDIN_CLIENT_SECRET"`
}

// LoadConfig parses configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}
