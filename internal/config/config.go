package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"CHARGEHUB_HTTP_PORT"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"CHARGEHUB_POSTGRES_DSN"`
}

// RedisConfig holds the browser-session store settings.
type RedisConfig struct {
	Addr       string `yaml:"addr" env:"CHARGEHUB_REDIS_ADDR"`
	Password   string `yaml:"password" env:"CHARGEHUB_REDIS_PASSWORD"`
	DB         int    `yaml:"db" env:"CHARGEHUB_REDIS_DB"`
	SessionTTL int    `yaml:"sessionTtlSeconds" env:"CHARGEHUB_SESSION_TTL"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	TokenSecret string `yaml:"tokenSecret" env:"CHARGEHUB_TOKEN_SECRET"`
	BcryptCost  int    `yaml:"bcryptCost" env:"CHARGEHUB_BCRYPT_COST"`
}

// EmailConfig holds outbound SMTP settings.
type EmailConfig struct {
	Host        string `yaml:"host" env:"CHARGEHUB_SMTP_HOST"`
	Port        int    `yaml:"port" env:"CHARGEHUB_SMTP_PORT"`
	User        string `yaml:"user" env:"CHARGEHUB_SMTP_USER"`
	Password    string `yaml:"password" env:"CHARGEHUB_SMTP_PASSWORD"`
	FromAddress string `yaml:"fromAddress" env:"CHARGEHUB_SMTP_FROM"`
	FromName    string `yaml:"fromName" env:"CHARGEHUB_SMTP_FROM_NAME"`
}

// Config defines chargehub configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Email    EmailConfig    `yaml:"email"`
	// WebsiteURL is the public base URL used in invitation and reset links.
	WebsiteURL string `yaml:"websiteUrl" env:"CHARGEHUB_WEBSITE_URL"`
	// ChargerTimeoutSeconds bounds outbound calls to charger REST APIs.
	ChargerTimeoutSeconds int `yaml:"chargerTimeoutSeconds" env:"CHARGEHUB_CHARGER_TIMEOUT"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:  HTTPConfig{Port: "8080"},
		Redis: RedisConfig{Addr: "localhost:6379", SessionTTL: 86400 * 30},
		Email: EmailConfig{Port: 587, FromName: "ChargeHub"},

		WebsiteURL:            "http://localhost:8080",
		ChargerTimeoutSeconds: 10,
	}

	if err := load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	if strings.TrimSpace(cfg.Auth.TokenSecret) == "" {
		return nil, errors.New("config: token secret required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// SessionTTL returns the browser-session lifetime as duration.
func (c *Config) SessionTTL() time.Duration {
	if c.Redis.SessionTTL <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.Redis.SessionTTL) * time.Second
}

// ChargerTimeout returns the outbound charger-call deadline.
func (c *Config) ChargerTimeout() time.Duration {
	if c.ChargerTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ChargerTimeoutSeconds) * time.Second
}
