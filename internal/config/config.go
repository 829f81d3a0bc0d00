package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                int    `env:"PORT" envDefault:"8080"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	RedisURL            string `env:"REDIS_URL,required"`
	PlatformFeePercent  int    `env:"PLATFORM_FEE_PERCENT" envDefault:"20"`
	ReminderLeadMinutes int    `env:"REMINDER_LEAD_MINUTES" envDefault:"15"`
	NoShowGraceMinutes  int    `env:"NO_SHOW_GRACE_MINUTES" envDefault:"30"`
	BroadcastBatchSize  int    `env:"BROADCAST_BATCH_SIZE" envDefault:"200"`
	RateLimitPerMin     int    `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.ReminderLeadMinutes) * time.Minute
}

func (c *Config) NoShowGrace() time.Duration {
	return time.Duration(c.NoShowGraceMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.PlatformFeePercent < 0 || c.PlatformFeePercent >= 100 {
		return fmt.Errorf("PLATFORM_FEE_PERCENT must be in [0, 100), got %d", c.PlatformFeePercent)
	}
	if c.BroadcastBatchSize <= 0 {
		return fmt.Errorf("BROADCAST_BATCH_SIZE must be positive, got %d", c.BroadcastBatchSize)
	}

	if isProduction {
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.RateLimitPerMin <= 0 {
			log.Warn().Msg("RATE_LIMIT_PER_MIN disabled in production")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
