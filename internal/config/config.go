package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	DBPath       string        `envconfig:"DB_PATH" default:"./data/timebot.db"`
	DefaultTZ    string        `envconfig:"DEFAULT_TZ" default:"UTC"`  // anchor zone for unconfigured senders
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	HTTPAddr     string        `envconfig:"HTTP_ADDR" default:":8080"` // healthz
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"15s"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
