package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAPIConfig_Defaults(t *testing.T) {
	cfg, err := LoadAPIConfig("", t.TempDir())
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "http://localhost:8545", cfg.Chain.RPCURL)
	assert.Equal(t, "data/instance.json", cfg.Chain.DeploymentPath)
	assert.Equal(t, int64(10), cfg.Chain.FundAmountETH)
	assert.Equal(t, 30*time.Second, cfg.Chain.ConfirmTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Chain.ReceiptPollInterval)
	assert.Equal(t, "checker", cfg.Auth.Issuer)
	assert.Equal(t, "supp-dex", cfg.Auth.Audience)
	assert.Equal(t, 3, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 65536, cfg.RateLimit.MaxKeys)
	assert.Equal(t, 168*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 65536, cfg.Session.MaxSessions)
}

func TestLoadAPIConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SUPPDEX_DEBUG", "true")
	t.Setenv("SUPPDEX_SERVER_PORT", "8080")
	t.Setenv("SUPPDEX_DATABASE_HOST", "db.internal")
	t.Setenv("SUPPDEX_DATABASE_PASSWORD", "hunter2")
	t.Setenv("SUPPDEX_CHAIN_RPC_URL", "http://anvil:8545")
	t.Setenv("SUPPDEX_CHAIN_FUND_AMOUNT_ETH", "25")
	t.Setenv("SUPPDEX_CHAIN_CONFIRM_TIMEOUT", "10s")
	t.Setenv("SUPPDEX_AUTH_AUDIENCE", "other-challenge")
	t.Setenv("SUPPDEX_RATE_LIMIT_MAX", "5")
	t.Setenv("SUPPDEX_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("SUPPDEX_SESSION_TTL", "24h")

	cfg, err := LoadAPIConfig("", t.TempDir())
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, "http://anvil:8545", cfg.Chain.RPCURL)
	assert.Equal(t, int64(25), cfg.Chain.FundAmountETH)
	assert.Equal(t, 10*time.Second, cfg.Chain.ConfirmTimeout)
	assert.Equal(t, "other-challenge", cfg.Auth.Audience)
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		DBName:   "instance",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=instance sslmode=disable",
		cfg.DSN())
}
