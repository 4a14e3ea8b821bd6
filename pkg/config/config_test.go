package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Defaults(t *testing.T) {
	v := viper.New()

	cfg, err := decode(v)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, LedgerSQLite, cfg.LedgerDriver)
	assert.Equal(t, 20*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 168*time.Hour, cfg.DescriptionCacheTTL)
	assert.Equal(t, 100, cfg.FeedPageSize)
	assert.Equal(t, "gpt-4o-mini", cfg.AltGenModel)
	assert.False(t, cfg.GenerationEnabled())
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.Origins())
}

func TestDecode_EnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("APPLY_CONCURRENCY", "8")
	t.Setenv("GENERATE_TIMEOUT", "5s")

	v := viper.New()
	v.AutomaticEnv()

	cfg, err := decode(v)
	require.NoError(t, err)

	assert.True(t, cfg.GenerationEnabled())
	assert.Equal(t, 8, cfg.ApplyConcurrency)
	assert.Equal(t, 5*time.Second, cfg.GenerateTimeout)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			LedgerDriver:          LedgerSQLite,
			SQLitePath:            "x.db",
			ApplyConcurrency:      1,
			FeedPageSize:          50,
			GenerateRatePerSecond: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.LedgerDriver = "mysql" }, true},
		{"postgres without url", func(c *Config) { c.LedgerDriver = LedgerPostgres }, true},
		{"postgres with url", func(c *Config) { c.LedgerDriver = LedgerPostgres; c.PostgresURL = "postgres://x" }, false},
		{"zero concurrency", func(c *Config) { c.ApplyConcurrency = 0 }, true},
		{"page size too large", func(c *Config) { c.FeedPageSize = 101 }, true},
		{"zero rate", func(c *Config) { c.GenerateRatePerSecond = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
