// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	APIURL      string        `env:"NEWSLETTER_API_URL" envDefault:"http://localhost:3000/api/newsletters"`
	APIToken    string        `env:"NEWSLETTER_API_TOKEN"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	ListenAddr  string        `env:"LISTEN_ADDR" envDefault:":8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	Locale    string `env:"LOCALE" envDefault:"en"`

	AudienceDebounce time.Duration `env:"AUDIENCE_DEBOUNCE" envDefault:"300ms"`
	NoticeTTL        time.Duration `env:"NOTICE_TTL" envDefault:"3s"`

	// Optional dispatch journal and event broker.
	DatabaseURL string `env:"DATABASE_URL"`
	AMQPURL     string `env:"AMQP_URL"`
	AMQPQueue   string `env:"AMQP_QUEUE" envDefault:"campaign_events"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads files (default ".env") into the environment without overriding
// variables already set, then parses Config.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		logrus.Debug("Config: no .env file found, relying on OS environment variables")
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
