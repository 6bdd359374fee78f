package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"pushrelay/service/webpush"
)

type Config struct {
	Port           int
	VerboseLogging bool
	RateLimit      int
	CORSOrigins    []string
	TrustProxy     bool
	StaticDir      string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	PushTTL         int

	BroadcastConcurrency int

	StoragePath    string
	RedisURL       string
	RedisKeyPrefix string

	DefaultIcon  string
	DefaultBadge string
	DefaultTag   string
	DefaultURL   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnvInt("PORT", 5000),
		VerboseLogging: getEnvBool("VERBOSE_LOGGING", false),
		RateLimit:      getEnvInt("RATE_LIMIT", 0),
		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
		TrustProxy:     getEnvBool("TRUST_PROXY", false),
		StaticDir:      os.Getenv("STATIC_DIR"),

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getEnvString("VAPID_SUBJECT", "mailto:admin@yachtsummary.com"),
		PushTTL:         getEnvInt("PUSH_TTL", 86400),

		BroadcastConcurrency: getEnvInt("BROADCAST_CONCURRENCY", 1),

		StoragePath:    os.Getenv("STORAGE_PATH"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RedisKeyPrefix: getEnvString("REDIS_KEY_PREFIX", "pushrelay:"),

		DefaultIcon:  getEnvString("DEFAULT_ICON", "🚢"),
		DefaultBadge: getEnvString("DEFAULT_BADGE", "🚢"),
		DefaultTag:   getEnvString("DEFAULT_TAG", "notification"),
		DefaultURL:   getEnvString("DEFAULT_URL", "https://yachtsummary.com"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.BroadcastConcurrency < 1 {
		return fmt.Errorf("BROADCAST_CONCURRENCY must be at least 1, got %d", c.BroadcastConcurrency)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must not be negative, got %d", c.RateLimit)
	}
	if c.VAPIDPrivateKey != "" && c.VAPIDPublicKey == "" {
		return fmt.Errorf("VAPID_PUBLIC_KEY is required when VAPID_PRIVATE_KEY is set")
	}
	if c.IsVAPIDConfigured() {
		if err := webpush.ValidateKeys(c.VAPIDPublicKey, c.VAPIDPrivateKey); err != nil {
			return fmt.Errorf("invalid VAPID key pair: %w", err)
		}
	}
	return nil
}

// IsVAPIDConfigured reports whether a signing key pair is available. Without
// one the server still accepts subscriptions but every delivery fails.
func (c *Config) IsVAPIDConfigured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
