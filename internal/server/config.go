// Package server provides configuration helpers that define runtime
// defaults, validation, and rate-limiting parameters for the chat relay.
package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	env "github.com/Netflix/go-env"
)

// RateLimitConfig defines the parameters for per-connection message rate
// limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security
// controls and the banned-word list fed to the profanity filter.
type Config struct {
	Port            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	RateLimit       RateLimitConfig
	BannedWords     []string
	ShutdownTimeout time.Duration
}

// envConfig is the flat environment surface unmarshalled by go-env before
// conversion into Config.
type envConfig struct {
	Port                   string `env:"PORT,default=3000"`
	AllowedOrigins         string `env:"ALLOWED_ORIGINS"`
	MaxMessageSize         int64  `env:"MAX_MESSAGE_SIZE,default=512"`
	RateLimitBurst         int    `env:"RATE_LIMIT_BURST,default=5"`
	RateLimitRefillSeconds int    `env:"RATE_LIMIT_REFILL_SECONDS,default=1"`
	BannedWords            string `env:"BANNED_WORDS"`
	ShutdownTimeoutSeconds int    `env:"SHUTDOWN_TIMEOUT_SECONDS,default=10"`
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":3000",
		AllowedOrigins: []string{
			"http://localhost:3000",
		},
		MaxMessageSize: 512,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		BannedWords:     defaultBannedWords(),
		ShutdownTimeout: 10 * time.Second,
	}
}

// defaultBannedWords is a small starter list; deployments extend it with
// the BANNED_WORDS environment variable.
func defaultBannedWords() []string {
	return []string{"damn", "hell", "crap", "bastard"}
}

func sanitizeConfig(cfg Config) Config {
	cfg.Port = normalizePort(cfg.Port)

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 512
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 5
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	if len(cfg.BannedWords) == 0 {
		cfg.BannedWords = defaultBannedWords()
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// normalizePort accepts both "3000" and ":3000" forms and returns a listen
// address.
func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":3000"
	}
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

// SetConfig applies the provided configuration. Passing nil resets to
// defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := Config{
		Port:           cfg.Port,
		AllowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
		MaxMessageSize: cfg.MaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          cfg.RateLimit.Burst,
			RefillInterval: cfg.RateLimit.RefillInterval,
		},
		BannedWords:     append([]string(nil), cfg.BannedWords...),
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	cfg.BannedWords = append([]string(nil), cfg.BannedWords...)
	return cfg
}

// NewConfig creates a Config populated with default values.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv builds a Config from environment variables, falling
// back to defaults for anything unset.
func NewConfigFromEnv() (*Config, error) {
	var raw envConfig
	if _, err := env.UnmarshalFromEnviron(&raw); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	cfg := defaultConfig()
	cfg.Port = normalizePort(raw.Port)

	if origins := splitList(raw.AllowedOrigins); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	if raw.MaxMessageSize > 0 {
		cfg.MaxMessageSize = raw.MaxMessageSize
	}
	if raw.RateLimitBurst > 0 {
		cfg.RateLimit.Burst = raw.RateLimitBurst
	}
	if raw.RateLimitRefillSeconds > 0 {
		cfg.RateLimit.RefillInterval = time.Duration(raw.RateLimitRefillSeconds) * time.Second
	}
	if words := splitList(raw.BannedWords); len(words) > 0 {
		cfg.BannedWords = words
	}
	if raw.ShutdownTimeoutSeconds > 0 {
		cfg.ShutdownTimeout = time.Duration(raw.ShutdownTimeoutSeconds) * time.Second
	}

	return &cfg, nil
}

// splitList parses a comma-separated environment value, dropping blanks.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
