// Package config assembles runtime settings from built-in defaults, an optional
// YAML file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	TransportGmail = "gmail"
	TransportLog   = "log"
)

type Config struct {
	HTTP struct {
		Port               string   `yaml:"port"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"http"`

	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Session struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"session"`

	Mail struct {
		Transport       string `yaml:"transport"`
		From            string `yaml:"from"`
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
	} `yaml:"mail"`

	Notify struct {
		QueueSize     int           `yaml:"queue_size"`
		RatePerSecond float64       `yaml:"rate_per_second"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"notify"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Database.Driver = DriverPostgres
	cfg.Database.URL = "host=localhost user=postgres password=password dbname=extrajob port=5432 sslmode=disable"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Session.TTL = 30 * 24 * time.Hour
	cfg.Mail.Transport = TransportLog
	cfg.Mail.From = "extraJob <noreply@extrajob.app>"
	cfg.Mail.CredentialsFile = "credential.json"
	cfg.Mail.TokenFile = "token.json"
	cfg.Notify.QueueSize = 256
	cfg.Notify.RatePerSecond = 5
	cfg.Notify.Timeout = 15 * time.Second
	return cfg
}

// Load builds the configuration. path may be empty; a missing .env file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("PORT", &c.HTTP.Port)
	str("DB_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.URL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("MAIL_TRANSPORT", &c.Mail.Transport)
	str("MAIL_FROM", &c.Mail.From)
	str("GMAIL_CREDENTIALS_FILE", &c.Mail.CredentialsFile)
	str("GMAIL_TOKEN_FILE", &c.Mail.TokenFile)

	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.HTTP.CORSAllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.HTTP.CORSAllowedOrigins = append(c.HTTP.CORSAllowedOrigins, o)
			}
		}
	}
	if err := dur("SESSION_TTL", &c.Session.TTL); err != nil {
		return err
	}
	if err := dur("NOTIFY_TIMEOUT", &c.Notify.Timeout); err != nil {
		return err
	}
	if v, ok := lookup("NOTIFY_QUEUE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NOTIFY_QUEUE_SIZE: %w", err)
		}
		c.Notify.QueueSize = n
	}
	if v, ok := lookup("NOTIFY_RATE_PER_SECOND"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("NOTIFY_RATE_PER_SECOND: %w", err)
		}
		c.Notify.RatePerSecond = f
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return errors.New("database url is empty")
	}
	switch c.Mail.Transport {
	case TransportGmail, TransportLog:
	default:
		return fmt.Errorf("unknown mail transport %q", c.Mail.Transport)
	}
	if c.Notify.QueueSize <= 0 {
		return fmt.Errorf("notify queue size must be positive, got %d", c.Notify.QueueSize)
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	return nil
}

// Mask hides all but the edges of a secret for startup logs.
func Mask(s string) string {
	if len(s) <= 10 {
		return "****"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
