package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pricing-engine", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 60*time.Second, cfg.Cache.L1TTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.L2TTL)
	assert.Equal(t, 64, cfg.Cache.Shards)
	assert.Equal(t, 100, cfg.Webhook.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Webhook.PollInterval)
	assert.Equal(t, 1024, cfg.Analytics.BufferSize)
	assert.Equal(t, time.Second, cfg.Analytics.FlushInterval)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PRICING_DATABASE_HOST", "db.internal")
	t.Setenv("PRICING_DATABASE_PORT", "5433")
	t.Setenv("PRICING_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Database.MaxIdleConns = 50
		cfg.Database.MaxOpenConns = 25

		err := cfg.validate()
		assert.Error(t, err)
	})

	t.Run("rejects non power of two shard count", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Cache.Shards = 48

		err := cfg.validate()
		assert.Error(t, err)
	})

	t.Run("rejects out of range sampling ratio", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Telemetry.SamplingRatio = 1.5

		err := cfg.validate()
		assert.Error(t, err)
	})

	t.Run("production requires password and TLS", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.App.Env = "production"

		err := cfg.validate()
		require.Error(t, err)

		cfg.Database.Password = "secret"
		err = cfg.validate()
		require.Error(t, err)

		cfg.Database.SSLMode = "require"
		assert.NoError(t, cfg.validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss/word",
		DBName:   "pricing",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.NotContains(t, dsn, "p@ss/word", "password must be escaped")
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.Addr())
}
