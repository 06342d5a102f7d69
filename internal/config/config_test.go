package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultDBPath, cfg.Database.Path)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
	assert.Equal(t, DefaultAuthEnabled, cfg.Auth.Enabled)
}

func TestLoadEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "server and database overrides",
			envVars: map[string]string{
				"POINTERD_HOST":    "127.0.0.1",
				"POINTERD_PORT":    "9090",
				"POINTERD_DB_PATH": "/custom/db.sqlite",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "/custom/db.sqlite", cfg.Database.Path)
			},
		},
		{
			name: "logging overrides",
			envVars: map[string]string{
				"POINTERD_LOG_LEVEL":  "debug",
				"POINTERD_LOG_FORMAT": "text",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "auth overrides",
			envVars: map[string]string{
				"POINTERD_AUTH_ENABLED":        "true",
				"POINTERD_AUTH_SHARED_SECRET":  "s3cr3t",
				"POINTERD_AUTH_JWT_SIGNING_KEY": "jwtkey",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Auth.Enabled)
				assert.Equal(t, "s3cr3t", cfg.Auth.SharedSecret)
				assert.Equal(t, "jwtkey", cfg.Auth.JWTSigningKey)
			},
		},
		{
			name: "partial env vars",
			envVars: map[string]string{
				"POINTERD_PORT":      "3000",
				"POINTERD_LOG_LEVEL": "warn",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3000, cfg.Server.Port)
				assert.Equal(t, DefaultHost, cfg.Server.Host)
				assert.Equal(t, "warn", cfg.Logging.Level)
			},
		},
		{
			name:    "no env vars (defaults)",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, defaults(), cfg)
			},
		},
		{
			name: "invalid int values ignored",
			envVars: map[string]string{
				"POINTERD_PORT": "invalid",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultPort, cfg.Server.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			t.Cleanup(func() { clearEnv(t) })

			cfg := defaults()
			result := loadEnv(cfg)
			tt.check(t, result)
		})
	}
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		ext         string
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid yaml",
			content: `
server:
  host: "127.0.0.1"
  port: 9090
database:
  path: "/custom/db.sqlite"
logging:
  level: "debug"
  format: "text"
`,
			ext: ".yaml",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "/custom/db.sqlite", cfg.Database.Path)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "valid json",
			content: `{
  "server": {"host": "127.0.0.1", "port": 9090},
  "database": {"path": "/custom/db.sqlite"},
  "logging": {"level": "debug", "format": "text"}
}`,
			ext: ".json",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:        "invalid yaml",
			content:     "invalid: yaml: content: [",
			ext:         ".yaml",
			expectError: true,
		},
		{
			name:        "invalid json",
			content:     "{invalid json",
			ext:         ".json",
			expectError: true,
		},
		{
			name:        "unsupported extension",
			content:     "some content",
			ext:         ".txt",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			tmpFile := filepath.Join(tmpDir, "config"+tt.ext)
			err := os.WriteFile(tmpFile, []byte(tt.content), 0644)
			require.NoError(t, err)

			result, err := loadFile(tmpFile)

			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			tt.check(t, result)
		})
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := loadFile("/nonexistent/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read file")
}

func TestMerge(t *testing.T) {
	base := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "./data/db.sqlite",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			SharedSecret: "base-secret",
		},
	}

	override := &Config{
		Server: ServerConfig{
			Port: 9090, // override
		},
		Logging: LoggingConfig{
			Level: "debug", // override
		},
	}

	result := merge(base, override)

	// Overridden values
	assert.Equal(t, 9090, result.Server.Port)
	assert.Equal(t, "debug", result.Logging.Level)

	// Preserved values
	assert.Equal(t, "0.0.0.0", result.Server.Host)
	assert.Equal(t, "./data/db.sqlite", result.Database.Path)
	assert.Equal(t, "json", result.Logging.Format)
	assert.Equal(t, "base-secret", result.Auth.SharedSecret)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			cfg:         defaults(),
			expectError: false,
		},
		{
			name: "invalid port - too low",
			cfg: func() *Config {
				cfg := defaults()
				cfg.Server.Port = -1
				return cfg
			}(),
			expectError: true,
			errorMsg:    "invalid port",
		},
		{
			name: "invalid port - too high",
			cfg: &Config{
				Server:  ServerConfig{Port: 99999},
				Logging: LoggingConfig{Level: "info", Format: "json"},
			},
			expectError: true,
			errorMsg:    "invalid port",
		},
		{
			name: "empty database path",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: ""},
			},
			expectError: true,
			errorMsg:    "database path cannot be empty",
		},
		{
			name: "invalid log level",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging: LoggingConfig{
					Level:  "invalid",
					Format: "json",
				},
			},
			expectError: true,
			errorMsg:    "invalid log level",
		},
		{
			name: "invalid log format",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging: LoggingConfig{
					Level:  "info",
					Format: "invalid",
				},
			},
			expectError: true,
			errorMsg:    "invalid log format",
		},
		{
			name: "auth enabled without any credential",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Auth:     AuthConfig{Enabled: true},
			},
			expectError: true,
			errorMsg:    "auth shared secret or jwt signing key must be set",
		},
		{
			name: "auth enabled with shared secret",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Auth:     AuthConfig{Enabled: true, SharedSecret: "s3cr3t"},
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorMsg != "" {
					assert.Contains(t, err.Error(), tt.errorMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults only", func(t *testing.T) {
		clearEnv(t)
		t.Cleanup(func() { clearEnv(t) })

		cfg, err := Load(context.Background())
		require.NoError(t, err)

		expected := defaults()
		assert.Equal(t, expected, cfg)
	})

	t.Run("with config file", func(t *testing.T) {
		clearEnv(t)
		t.Cleanup(func() { clearEnv(t) })

		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")
		content := `
server:
  port: 9090
logging:
  level: "debug"
`
		err := os.WriteFile(configFile, []byte(content), 0644)
		require.NoError(t, err)

		os.Setenv("POINTERD_CONFIG_FILE", configFile)

		cfg, err := Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, DefaultHost, cfg.Server.Host)
		assert.Equal(t, DefaultDBPath, cfg.Database.Path)
	})

	t.Run("env overrides file", func(t *testing.T) {
		clearEnv(t)
		t.Cleanup(func() { clearEnv(t) })

		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")
		content := `
server:
  port: 9090
logging:
  level: "debug"
`
		err := os.WriteFile(configFile, []byte(content), 0644)
		require.NoError(t, err)

		os.Setenv("POINTERD_CONFIG_FILE", configFile)
		os.Setenv("POINTERD_PORT", "3000")
		os.Setenv("POINTERD_LOG_LEVEL", "error")
		os.Setenv("POINTERD_HOST", "192.168.1.100")

		cfg, err := Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "error", cfg.Logging.Level)
		assert.Equal(t, "192.168.1.100", cfg.Server.Host)
	})

	t.Run("invalid config file", func(t *testing.T) {
		clearEnv(t)
		t.Cleanup(func() { clearEnv(t) })

		os.Setenv("POINTERD_CONFIG_FILE", "/nonexistent/config.yaml")

		_, err := Load(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "load config file")
	})

	t.Run("validation error", func(t *testing.T) {
		clearEnv(t)
		t.Cleanup(func() { clearEnv(t) })

		os.Setenv("POINTERD_PORT", "99999")

		_, err := Load(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "validate config")
	})
}

func TestContains(t *testing.T) {
	slice := []string{"a", "b", "c"}

	assert.True(t, contains(slice, "a"))
	assert.True(t, contains(slice, "b"))
	assert.True(t, contains(slice, "c"))
	assert.False(t, contains(slice, "d"))
	assert.False(t, contains(slice, ""))
	assert.False(t, contains([]string{}, "a"))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	expectedDefaults := defaults()
	assert.Equal(t, expectedDefaults, cfg)

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultDBPath, cfg.Database.Path)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
}

func TestLoadEnv_Observability(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, obs ObservabilityConfig)
	}{
		{
			name: "metrics enabled",
			envVars: map[string]string{
				"POINTERD_METRICS_ENABLED": "true",
				"POINTERD_METRICS_PORT":    "9090",
				"POINTERD_METRICS_PATH":    "/custom/metrics",
			},
			check: func(t *testing.T, obs ObservabilityConfig) {
				assert.True(t, obs.Metrics.Enabled)
				assert.Equal(t, 9090, obs.Metrics.Port)
				assert.Equal(t, "/custom/metrics", obs.Metrics.Path)
			},
		},
		{
			name: "tracing enabled",
			envVars: map[string]string{
				"POINTERD_TRACING_ENABLED":     "true",
				"POINTERD_TRACING_ENDPOINT":    "http://custom:4318",
				"POINTERD_TRACING_SAMPLE_RATE": "0.5",
			},
			check: func(t *testing.T, obs ObservabilityConfig) {
				assert.True(t, obs.Tracing.Enabled)
				assert.Equal(t, "http://custom:4318", obs.Tracing.Endpoint)
				assert.Equal(t, 0.5, obs.Tracing.SampleRate)
			},
		},
		{
			name: "sentry enabled",
			envVars: map[string]string{
				"POINTERD_SENTRY_ENABLED":     "true",
				"POINTERD_SENTRY_DSN":         "https://test@sentry.io/123",
				"POINTERD_SENTRY_ENVIRONMENT": "production",
				"POINTERD_SENTRY_SAMPLE_RATE": "0.8",
				"POINTERD_SENTRY_RELEASE":     "v1.0.0",
			},
			check: func(t *testing.T, obs ObservabilityConfig) {
				assert.True(t, obs.Sentry.Enabled)
				assert.Equal(t, "https://test@sentry.io/123", obs.Sentry.DSN)
				assert.Equal(t, "production", obs.Sentry.Environment)
				assert.Equal(t, 0.8, obs.Sentry.SampleRate)
				assert.Equal(t, "v1.0.0", obs.Sentry.Release)
			},
		},
		{
			name: "invalid boolean values ignored",
			envVars: map[string]string{
				"POINTERD_METRICS_ENABLED": "invalid",
				"POINTERD_TRACING_ENABLED": "not-a-bool",
				"POINTERD_SENTRY_ENABLED":  "maybe",
			},
			check: func(t *testing.T, obs ObservabilityConfig) {
				assert.Equal(t, DefaultMetricsEnabled, obs.Metrics.Enabled)
				assert.Equal(t, DefaultTracingEnabled, obs.Tracing.Enabled)
				assert.Equal(t, DefaultSentryEnabled, obs.Sentry.Enabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			t.Cleanup(func() { clearEnv(t) })

			cfg := defaults()
			result := loadEnv(cfg)

			tt.check(t, result.Observability)
		})
	}
}

func TestMerge_Observability(t *testing.T) {
	base := &Config{
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: false, Port: 9090, Path: "/metrics"},
			Tracing: TracingConfig{Enabled: false, Endpoint: "http://localhost:4318", SampleRate: 0.1},
			Sentry:  SentryConfig{Enabled: false, Environment: "development", SampleRate: 1.0, Release: "v0.1.0"},
		},
	}

	override := &Config{
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true, Port: 8080, Path: "/custom"},
			Tracing: TracingConfig{Enabled: true, Endpoint: "http://custom:4318", SampleRate: 0.5},
			Sentry: SentryConfig{
				Enabled:     true,
				DSN:         "https://test@sentry.io/123",
				Environment: "production",
				SampleRate:  0.8,
				Release:     "v1.0.0",
			},
		},
	}

	result := merge(base, override)

	assert.True(t, result.Observability.Metrics.Enabled)
	assert.Equal(t, 8080, result.Observability.Metrics.Port)
	assert.Equal(t, "/custom", result.Observability.Metrics.Path)

	assert.True(t, result.Observability.Tracing.Enabled)
	assert.Equal(t, "http://custom:4318", result.Observability.Tracing.Endpoint)
	assert.Equal(t, 0.5, result.Observability.Tracing.SampleRate)

	assert.True(t, result.Observability.Sentry.Enabled)
	assert.Equal(t, "https://test@sentry.io/123", result.Observability.Sentry.DSN)
	assert.Equal(t, "production", result.Observability.Sentry.Environment)
	assert.Equal(t, 0.8, result.Observability.Sentry.SampleRate)
	assert.Equal(t, "v1.0.0", result.Observability.Sentry.Release)
}

func TestValidate_Observability(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *Config
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid observability disabled",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Observability: ObservabilityConfig{
					Metrics: MetricsConfig{Enabled: false},
					Tracing: TracingConfig{Enabled: false},
					Sentry:  SentryConfig{Enabled: false},
				},
			},
			expectError: false,
		},
		{
			name: "valid metrics enabled",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Observability: ObservabilityConfig{
					Metrics: MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"},
					Tracing: TracingConfig{Enabled: false},
					Sentry:  SentryConfig{Enabled: false},
				},
			},
			expectError: false,
		},
		{
			name: "invalid metrics port",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Observability: ObservabilityConfig{
					Metrics: MetricsConfig{Enabled: true, Port: 0, Path: "/metrics"},
					Tracing: TracingConfig{Enabled: false},
					Sentry:  SentryConfig{Enabled: false},
				},
			},
			expectError: true,
			errorMsg:    "invalid metrics port",
		},
		{
			name: "empty metrics path when enabled",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Observability: ObservabilityConfig{
					Metrics: MetricsConfig{Enabled: true, Port: 9090, Path: ""},
					Tracing: TracingConfig{Enabled: false},
					Sentry:  SentryConfig{Enabled: false},
				},
			},
			expectError: true,
			errorMsg:    "metrics path cannot be empty",
		},
		{
			name: "valid tracing enabled",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Observability: ObservabilityConfig{
					Metrics: MetricsConfig{Enabled: false},
					Tracing: TracingConfig{Enabled: true, Endpoint: "http://localhost:4318", SampleRate: 0.1},
					Sentry:  SentryConfig{Enabled: false},
				},
			},
			expectError: false,
		},
		{
			name: "empty tracing endpoint when enabled",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Observability: ObservabilityConfig{
					Metrics: MetricsConfig{Enabled: false},
					Tracing: TracingConfig{Enabled: true, Endpoint: ""},
					Sentry:  SentryConfig{Enabled: false},
				},
			},
			expectError: true,
			errorMsg:    "tracing endpoint cannot be empty",
		},
		{
			name: "invalid tracing sample rate",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Observability: ObservabilityConfig{
					Metrics: MetricsConfig{Enabled: false},
					Tracing: TracingConfig{Enabled: true, Endpoint: "http://localhost:4318", SampleRate: 1.5},
					Sentry:  SentryConfig{Enabled: false},
				},
			},
			expectError: true,
			errorMsg:    "tracing sample rate must be between 0 and 1",
		},
		{
			name: "valid sentry enabled",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Observability: ObservabilityConfig{
					Metrics: MetricsConfig{Enabled: false},
					Tracing: TracingConfig{Enabled: false},
					Sentry: SentryConfig{
						Enabled:     true,
						DSN:         "https://test@sentry.io/123",
						Environment: "production",
						SampleRate:  0.8,
						Release:     "v1.0.0",
					},
				},
			},
			expectError: false,
		},
		{
			name: "empty sentry DSN when enabled",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Observability: ObservabilityConfig{
					Metrics: MetricsConfig{Enabled: false},
					Tracing: TracingConfig{Enabled: false},
					Sentry:  SentryConfig{Enabled: true, DSN: ""},
				},
			},
			expectError: true,
			errorMsg:    "sentry DSN cannot be empty",
		},
		{
			name: "invalid sentry sample rate",
			cfg: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "/db"},
				Logging:  LoggingConfig{Level: "info", Format: "json"},
				Observability: ObservabilityConfig{
					Metrics: MetricsConfig{Enabled: false},
					Tracing: TracingConfig{Enabled: false},
					Sentry:  SentryConfig{Enabled: true, DSN: "https://test@sentry.io/123", SampleRate: 1.5},
				},
			},
			expectError: true,
			errorMsg:    "sentry sample rate must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorMsg != "" {
					assert.Contains(t, err.Error(), tt.errorMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// Helper to clear all POINTERD_* env vars
func clearEnv(t *testing.T) {
	vars := []string{
		"POINTERD_HOST",
		"POINTERD_PORT",
		"POINTERD_DB_PATH",
		"POINTERD_LOG_LEVEL",
		"POINTERD_LOG_FORMAT",
		"POINTERD_CONFIG_FILE",
		"POINTERD_AUTH_ENABLED",
		"POINTERD_AUTH_SHARED_SECRET",
		"POINTERD_AUTH_JWT_SIGNING_KEY",
		"POINTERD_METRICS_ENABLED",
		"POINTERD_METRICS_PORT",
		"POINTERD_METRICS_PATH",
		"POINTERD_TRACING_ENABLED",
		"POINTERD_TRACING_ENDPOINT",
		"POINTERD_TRACING_SAMPLE_RATE",
		"POINTERD_SENTRY_ENABLED",
		"POINTERD_SENTRY_DSN",
		"POINTERD_SENTRY_ENVIRONMENT",
		"POINTERD_SENTRY_SAMPLE_RATE",
		"POINTERD_SENTRY_RELEASE",
		"POINTERD_SECURITY_CSP_ENABLED",
		"POINTERD_SECURITY_HSTS_ENABLED",
		"POINTERD_SECURITY_HSTS_MAX_AGE",
		"POINTERD_SECURITY_HSTS_INCLUDE_SUBDOMAINS",
		"POINTERD_SECURITY_HSTS_PRELOAD",
		"POINTERD_SECURITY_X_FRAME_OPTIONS",
		"POINTERD_SECURITY_X_CONTENT_TYPE_OPTIONS",
		"POINTERD_SECURITY_REFERRER_POLICY",
		"POINTERD_SECURITY_PERMISSIONS_POLICY",
		"POINTERD_CORS_ENABLED",
		"POINTERD_CORS_ALLOWED_ORIGINS",
		"POINTERD_CORS_ALLOWED_METHODS",
		"POINTERD_CORS_ALLOWED_HEADERS",
		"POINTERD_CORS_EXPOSED_HEADERS",
		"POINTERD_CORS_ALLOW_CREDENTIALS",
		"POINTERD_CORS_MAX_AGE",
		"POINTERD_TLS_ENABLED",
		"POINTERD_RATE_LIMIT_ENABLED",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
