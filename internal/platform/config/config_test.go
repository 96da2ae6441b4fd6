package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMapDefaults(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"DATABASE_URL": "postgres://gateway@db.internal:5432/contacts",
	})
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.MetricsEnabled)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.SSLMode, "unset so the URL's own sslmode is kept")
	assert.Zero(t, cfg.Database.MaxConns)
	assert.Equal(t, "function", cfg.Resolver.Mode)
	assert.Equal(t, "identify_contact", cfg.Resolver.Name)
	assert.Zero(t, cfg.Resolver.Timeout)
	assert.Equal(t, "both", cfg.Identify.Validation)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.Tracing.Endpoint)

	level, err := cfg.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestFromMapOverrides(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"DATABASE_URL":        "host=localhost dbname=contacts",
		"PORT":                "8081",
		"DATABASE_DRIVER":     "pq",
		"DATABASE_SSL_MODE":   "disable",
		"DATABASE_MAX_CONNS":  "25",
		"RESOLVER_MODE":       "procedure",
		"RESOLVER_NAME":       "contacts.identify_contact",
		"RESOLVER_TIMEOUT":    "2s",
		"IDENTIFY_VALIDATION": "any",
		"LOG_LEVEL":           "debug",
		"LOG_FORMAT":          "text",
		"METRICS_ENABLED":     "false",
	})
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Addr())
	assert.False(t, cfg.Server.MetricsEnabled)
	assert.Equal(t, "pq", cfg.Database.Driver)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, "procedure", cfg.Resolver.Mode)
	assert.Equal(t, "contacts.identify_contact", cfg.Resolver.Name)
	assert.Equal(t, 2*time.Second, cfg.Resolver.Timeout)
	assert.Equal(t, "any", cfg.Identify.Validation)
}

func TestFromMapRequiresDatabaseURL(t *testing.T) {
	_, err := FromMap(map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"port":       {"PORT": "http"},
		"driver":     {"DATABASE_DRIVER": "mysql"},
		"ssl mode":   {"DATABASE_SSL_MODE": "sometimes"},
		"mode":       {"RESOLVER_MODE": "trigger"},
		"name":       {"RESOLVER_NAME": "identify_contact(); DROP TABLE contact"},
		"validation": {"IDENTIFY_VALIDATION": "none"},
		"log level":  {"LOG_LEVEL": "loud"},
		"log format": {"LOG_FORMAT": "xml"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			vars["DATABASE_URL"] = "postgres://localhost/contacts"
			_, err := FromMap(vars)
			assert.Error(t, err)
		})
	}
}
