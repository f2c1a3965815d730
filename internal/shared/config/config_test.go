package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_PortsPerService(t *testing.T) {
	t.Setenv("SERVICE_NAME", "wallet-service")
	cfg := Load()
	assert.Equal(t, "8082", cfg.HTTPPort)
	assert.Equal(t, "9098", cfg.MetricsPort)

	t.Setenv("SERVICE_NAME", "round-events-worker")
	cfg = Load()
	assert.Equal(t, "", cfg.HTTPPort)
	assert.Equal(t, "9097", cfg.MetricsPort)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "chance-service")
	cfg := Load()
	assert.Equal(t, "round_events", cfg.TopicRoundEvents)
	assert.Equal(t, "round_events_broadcast", cfg.RedisRoundChannel)
	assert.Equal(t, "postgres", cfg.AccountBackend)
	assert.Equal(t, 60*time.Second, cfg.ConfigCacheTTL)
}

func TestLoad_Durations(t *testing.T) {
	t.Setenv("CONFIG_CACHE_TTL", "5m")
	t.Setenv("SESSION_IDLE_TTL", "90")
	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.ConfigCacheTTL)
	assert.Equal(t, 90*time.Second, cfg.SessionIdleTTL)

	t.Setenv("CONFIG_CACHE_TTL", "soon")
	assert.Equal(t, 60*time.Second, Load().ConfigCacheTTL)
}

func TestLoad_HistoryCacheTTL(t *testing.T) {
	assert.Equal(t, 30*time.Second, Load().HistoryCacheTTL)

	t.Setenv("HISTORY_CACHE_TTL", "0")
	assert.Zero(t, Load().HistoryCacheTTL)
}

func TestLoad_OpeningBalance(t *testing.T) {
	assert.Equal(t, int64(10_000), Load().OpeningBalance)

	t.Setenv("OPENING_BALANCE", "250")
	assert.Equal(t, int64(250), Load().OpeningBalance)

	t.Setenv("OPENING_BALANCE", "lots")
	assert.Equal(t, int64(10_000), Load().OpeningBalance)
}

func TestLoad_CORSOrigin(t *testing.T) {
	assert.Equal(t, "*", Load().CORSOrigin)

	t.Setenv("CORS_ORIGIN", "https://app.example.com")
	assert.Equal(t, "https://app.example.com", Load().CORSOrigin)
}
