package config

import "time"

// RateLimitConfig configures the Redis token bucket guarding the booking
// endpoints.  Capacity is the burst size; RefillTokens are added every
// RefillInterval.  KeyStrategy picks which request attributes form the
// bucket key (ip, user, route or a combination joined by "_").  Burst and
// RefillEvery are shorthands that override the capacity and the refill
// cadence when set.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"20"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" envDefault:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"3s"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL" envDefault:"10m"`
	KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" envDefault:"ip_user_route"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX" envDefault:"rl"`
	Debug          bool          `env:"RATE_LIMIT_DEBUG"`

	Burst       int           `env:"RATE_LIMIT_BURST"`
	RefillEvery time.Duration `env:"RATE_LIMIT_REFILL_EVERY"`
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  The bucket TTL never
// drops below five refill intervals so an idle key does not reset
// mid-refill.
func LoadRateLimitConfig() (RateLimitConfig, error) {
	var cfg RateLimitConfig
	if err := parseEnv(&cfg); err != nil {
		return RateLimitConfig{}, err
	}
	if cfg.Burst > 0 {
		cfg.Capacity = cfg.Burst
	}
	if cfg.RefillEvery > 0 {
		cfg.RefillTokens = 1
		cfg.RefillInterval = cfg.RefillEvery
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg, nil
}
