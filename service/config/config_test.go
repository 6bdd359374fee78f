package config

import (
	"testing"

	"pushrelay/service/webpush"

	qt "github.com/frankban/quicktest"
)

var envKeys = []string{
	"PORT", "VERBOSE_LOGGING", "RATE_LIMIT", "CORS_ORIGINS", "TRUST_PROXY", "STATIC_DIR",
	"VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY", "VAPID_SUBJECT", "PUSH_TTL",
	"BROADCAST_CONCURRENCY", "STORAGE_PATH", "REDIS_URL", "REDIS_KEY_PREFIX",
	"DEFAULT_ICON", "DEFAULT_BADGE", "DEFAULT_TAG", "DEFAULT_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, cfg.Port, qt.Equals, 5000)
	qt.Assert(t, cfg.VerboseLogging, qt.IsFalse)
	qt.Assert(t, cfg.RateLimit, qt.Equals, 0)
	qt.Assert(t, cfg.CORSOrigins, qt.DeepEquals, []string{"*"})
	qt.Assert(t, cfg.TrustProxy, qt.IsFalse)
	qt.Assert(t, cfg.StaticDir, qt.Equals, "")
	qt.Assert(t, cfg.VAPIDSubject, qt.Equals, "mailto:admin@yachtsummary.com")
	qt.Assert(t, cfg.PushTTL, qt.Equals, 86400)
	qt.Assert(t, cfg.BroadcastConcurrency, qt.Equals, 1)
	qt.Assert(t, cfg.RedisKeyPrefix, qt.Equals, "pushrelay:")
	qt.Assert(t, cfg.DefaultIcon, qt.Equals, "🚢")
	qt.Assert(t, cfg.DefaultTag, qt.Equals, "notification")
	qt.Assert(t, cfg.DefaultURL, qt.Equals, "https://yachtsummary.com")
	qt.Assert(t, cfg.IsVAPIDConfigured(), qt.IsFalse)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	keys, err := webpush.GenerateKeys()
	qt.Assert(t, err, qt.IsNil)

	t.Setenv("PORT", "8080")
	t.Setenv("VERBOSE_LOGGING", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("VAPID_PUBLIC_KEY", keys.PublicKey)
	t.Setenv("VAPID_PRIVATE_KEY", keys.PrivateKey)
	t.Setenv("BROADCAST_CONCURRENCY", "8")
	t.Setenv("STORAGE_PATH", "/tmp/subs.db")
	t.Setenv("TRUST_PROXY", "1")
	t.Setenv("STATIC_DIR", "./public")

	cfg, err := Load()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, cfg.Port, qt.Equals, 8080)
	qt.Assert(t, cfg.VerboseLogging, qt.IsTrue)
	qt.Assert(t, cfg.CORSOrigins, qt.DeepEquals, []string{"https://a.example", "https://b.example"})
	qt.Assert(t, cfg.BroadcastConcurrency, qt.Equals, 8)
	qt.Assert(t, cfg.StoragePath, qt.Equals, "/tmp/subs.db")
	qt.Assert(t, cfg.TrustProxy, qt.IsTrue)
	qt.Assert(t, cfg.StaticDir, qt.Equals, "./public")
	qt.Assert(t, cfg.IsVAPIDConfigured(), qt.IsTrue)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")

	cfg, err := Load()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, cfg.Port, qt.Equals, 5000)
}

func TestValidate(t *testing.T) {
	keys, err := webpush.GenerateKeys()
	qt.Assert(t, err, qt.IsNil)
	other, err := webpush.GenerateKeys()
	qt.Assert(t, err, qt.IsNil)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "PORT must be between 1 and 65535, got 70000",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.BroadcastConcurrency = 0 },
			wantErr: "BROADCAST_CONCURRENCY must be at least 1, got 0",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.RateLimit = -1 },
			wantErr: "RATE_LIMIT must not be negative, got -1",
		},
		{
			name:    "private key without public key",
			mutate:  func(c *Config) { c.VAPIDPrivateKey = keys.PrivateKey },
			wantErr: "VAPID_PUBLIC_KEY is required when VAPID_PRIVATE_KEY is set",
		},
		{
			name: "matching key pair",
			mutate: func(c *Config) {
				c.VAPIDPublicKey = keys.PublicKey
				c.VAPIDPrivateKey = keys.PrivateKey
			},
		},
		{
			name: "mismatched key pair",
			mutate: func(c *Config) {
				c.VAPIDPublicKey = other.PublicKey
				c.VAPIDPrivateKey = keys.PrivateKey
			},
			wantErr: "invalid VAPID key pair: .*",
		},
		{
			name:   "public key only",
			mutate: func(c *Config) { c.VAPIDPublicKey = keys.PublicKey },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Port: 5000, BroadcastConcurrency: 1}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				qt.Assert(t, err, qt.IsNil)
				return
			}
			qt.Assert(t, err, qt.ErrorMatches, tt.wantErr)
		})
	}
}
