// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all server settings.
type Config struct {
	Addr   string `env:"ADDR" envDefault:":8080"`
	DBPath string `env:"DB_PATH" envDefault:"matchplay.db"`

	DefaultRuleSet     string        `env:"DEFAULT_RULE_SET" envDefault:"rps"`
	DefaultBestOf      int           `env:"DEFAULT_BEST_OF" envDefault:"3"`
	RoundTimeout       time.Duration `env:"ROUND_TIMEOUT" envDefault:"10s"`
	MatchTimeout       time.Duration `env:"MATCH_TIMEOUT" envDefault:"60s"`
	RoundTimeoutPolicy string        `env:"ROUND_TIMEOUT_POLICY" envDefault:"auto-award"`

	SessionRetention time.Duration `env:"SESSION_RETENTION" envDefault:"5m"`
	CleanupInterval  time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
