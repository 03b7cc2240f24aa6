package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the catalog response cache.  When
// Enabled is false or no Redis client is configured, caching is disabled.
// Methods is the upper-cased set built from MethodList.  KeyStrategy
// determines which parts of the request contribute to the cache key.
// Prefix namespaces the keys so the admin handlers can drop every entry
// after a schedule change.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" envDefault:"true"`
	MethodList   []string      `env:"CACHE_METHODS" envSeparator:"," envDefault:"GET"`
	TTL          time.Duration `env:"CACHE_TTL" envDefault:"60s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" envDefault:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX" envDefault:"catalog"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`

	Methods map[string]bool
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() (CacheConfig, error) {
	var cfg CacheConfig
	if err := parseEnv(&cfg); err != nil {
		return CacheConfig{}, err
	}
	cfg.Methods = methodSet(cfg.MethodList)
	return cfg, nil
}

func methodSet(list []string) map[string]bool {
	m := map[string]bool{}
	for _, p := range compact(list) {
		m[strings.ToUpper(p)] = true
	}
	return m
}
