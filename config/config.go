package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Agent     AgentConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Events    EventsConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// StoreConfig controls the SQLite store.
type StoreConfig struct {
	// Path is the database file path. default: "pagent.db"
	Path string
}

// AgentConfig controls the collaborator service client (generation,
// execution, and scrape-fetch endpoints).
type AgentConfig struct {
	// BaseURL is the collaborator service root, e.g. "http://127.0.0.1:8101".
	BaseURL string

	// APIKey is sent as a Bearer token when non-empty.
	APIKey string

	// Timeout is the per-call deadline. Generation and execution calls can
	// take tens of seconds. default: 90s
	Timeout time.Duration

	// CompressThreshold is the HTML byte size above which payloads are
	// gzip+base64 encoded on the wire. default: 16384
	CompressThreshold int

	// CleanThreshold is the HTML byte size above which generation payloads
	// are noise-stripped before prompting. 0 disables. default: 1048576
	CleanThreshold int
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// Keys maps API key → owner identity. Configured as "key:owner" pairs.
	Keys map[string]string
}

// RateLimitConfig controls per-owner rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per owner.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per owner.
	Burst int // default: 10
}

// CacheConfig controls the prepared-content cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached entries.
	MaxEntries int // default: 256
}

// EventsConfig controls the webhook event sink.
type EventsConfig struct {
	// WebhookURL receives domain events when non-empty.
	WebhookURL string

	// Secret signs webhook payloads with HMAC-SHA256 when non-empty.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PAGENT_HOST", "0.0.0.0"),
			Port: envIntOr("PAGENT_PORT", 8080),
			Mode: envOr("PAGENT_MODE", "release"),
		},
		Store: StoreConfig{
			Path: envOr("PAGENT_DB_PATH", "pagent.db"),
		},
		Agent: AgentConfig{
			BaseURL:           envOr("PAGENT_AGENT_URL", "http://127.0.0.1:8101"),
			APIKey:            os.Getenv("PAGENT_AGENT_API_KEY"),
			Timeout:           envDurationOr("PAGENT_AGENT_TIMEOUT", 90*time.Second),
			CompressThreshold: envIntOr("PAGENT_COMPRESS_THRESHOLD", 16384),
			CleanThreshold:    envIntOr("PAGENT_CLEAN_THRESHOLD", 1<<20),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PAGENT_AUTH_ENABLED", true),
			Keys:    envKeyMapOr("PAGENT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGENT_RATE_RPS", 5.0),
			Burst:             envIntOr("PAGENT_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PAGENT_CACHE_MAX_ENTRIES", 256),
		},
		Events: EventsConfig{
			WebhookURL: os.Getenv("PAGENT_WEBHOOK_URL"),
			Secret:     os.Getenv("PAGENT_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("PAGENT_LOG_LEVEL", "info"),
			Format: envOr("PAGENT_LOG_FORMAT", "json"),
		},
	}
}

// envKeyMapOr parses "key:owner,key2:owner2" pairs. A pair without a colon
// maps the key to itself, so single-tenant setups can list bare keys.
func envKeyMapOr(key string, fallback map[string]string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	result := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		if k, owner, ok := strings.Cut(pair, ":"); ok {
			result[strings.TrimSpace(k)] = strings.TrimSpace(owner)
		} else {
			result[pair] = pair
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
