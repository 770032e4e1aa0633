package domain

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the complete Kestrel configuration. It is loaded once at
// process start and treated as read-only for the process lifetime.
type Config struct {
	Server     ServerConfig    `json:"server"`
	Thresholds ThresholdConfig `json:"thresholds"`

	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rateLimit"`

	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// TierBounds are the lower boundaries of the four risk tiers.
// A score at a boundary belongs to the higher tier.
type TierBounds struct {
	Low      float64 `json:"low"`
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
}

// ThresholdConfig is the immutable set of numeric parameters consumed by the
// scoring engine and classifier. No mutation API exists; alternate thresholds
// mean constructing a new engine.
type ThresholdConfig struct {
	// Amount signals. SuspiciousAmount gates the stronger +0.3 signal,
	// HighAmount the +0.2 signal; both fire for amounts above both.
	SuspiciousAmount float64 `json:"suspiciousAmount"`
	HighAmount       float64 `json:"highAmount"`

	Tiers TierBounds `json:"tiers"`

	// HighRiskCategories are compared case-insensitively against the
	// transaction's merchant category.
	HighRiskCategories []string `json:"highRiskCategories"`

	// BatchLimit is the maximum batch cardinality accepted in one call.
	BatchLimit int `json:"batchLimit"`
}

// Validate checks the configuration invariants. A violation is fatal at
// load time; the scoring core assumes a validated configuration.
func (c ThresholdConfig) Validate() error {
	if c.SuspiciousAmount < 0 || c.HighAmount < 0 {
		return fmt.Errorf("amount thresholds must be non-negative")
	}
	bounds := []struct {
		name  string
		value float64
	}{
		{"low", c.Tiers.Low},
		{"medium", c.Tiers.Medium},
		{"high", c.Tiers.High},
		{"critical", c.Tiers.Critical},
	}
	for i, b := range bounds {
		if b.value < 0 || b.value > 1 {
			return fmt.Errorf("tier boundary %s must be within [0,1], got %.3f", b.name, b.value)
		}
		if i > 0 && b.value < bounds[i-1].value {
			return fmt.Errorf("tier boundaries must be non-decreasing: %s (%.3f) < %s (%.3f)",
				b.name, b.value, bounds[i-1].name, bounds[i-1].value)
		}
	}
	if c.BatchLimit <= 0 {
		return fmt.Errorf("batch limit must be positive, got %d", c.BatchLimit)
	}
	return nil
}

// HighRiskSet returns the configured categories as a lowercase lookup set.
func (c ThresholdConfig) HighRiskSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.HighRiskCategories))
	for _, cat := range c.HighRiskCategories {
		set[strings.ToLower(cat)] = struct{}{}
	}
	return set
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// In-process LRU settings
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	ChannelBufferSize int

	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// AuthConfig holds bearer-token authentication settings.
// Disabled by default for local development.
type AuthConfig struct {
	Enabled  bool   `json:"enabled"`
	Secret   string `json:"-"`
	Username string `json:"-"`
	Password string `json:"-"`
	TokenTTL int    `json:"tokenTtl"` // minutes
}

// RateLimitConfig holds request rate limiting settings.
type RateLimitConfig struct {
	Enabled    bool `json:"enabled"`
	Requests   int  `json:"requests"`
	WindowSecs int  `json:"windowSecs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultThresholds returns the stock scoring thresholds.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		SuspiciousAmount: 10000,
		HighAmount:       5000,
		Tiers: TierBounds{
			Low:      0.3,
			Medium:   0.6,
			High:     0.8,
			Critical: 0.9,
		},
		HighRiskCategories: []string{"gambling", "cryptocurrency", "adult_content"},
		BatchLimit:         100,
	}
}

// DefaultConfig returns the default configuration: SQLite, in-process cache,
// channel bus, auth disabled.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Thresholds: DefaultThresholds(),
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Auth: AuthConfig{
			Enabled:  false,
			TokenTTL: 30,
		},
		RateLimit: RateLimitConfig{
			Enabled:    true,
			Requests:   100,
			WindowSecs: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}
