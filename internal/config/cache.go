package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the GET response cache.  When Enabled is
// false or Redis is unreachable the middleware passes requests through.
// Paths lists the route prefixes worth caching: reference data that changes
// rarely, never per-user feeds such as an inbox.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // "route_query" or "route_query_user"
	Prefix       string
	MaxBodyBytes int
	Paths        []string
}

func LoadCacheConfig() CacheConfig {
	methods := map[string]bool{}
	for _, m := range envList("CACHE_METHODS", "GET") {
		methods[strings.ToUpper(m)] = true
	}
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      methods,
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "fieldops:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
		Paths:        envList("CACHE_PATHS", "/v1/equipment,/v1/contractors,/v1/dashboard"),
	}
}
