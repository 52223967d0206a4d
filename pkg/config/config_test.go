package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lotledger/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Allocation.MaxLots)
	assert.False(t, cfg.Allocation.AllowPartial)
	assert.Equal(t, 24*time.Hour, cfg.Redis.DraftTTL)
	assert.Equal(t, "inventory.events", cfg.RabbitMQ.Exchange)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoad_LeeVariablesDeEntorno(t *testing.T) {
	t.Setenv("ALLOCATION_MAX_LOTS", "5")
	t.Setenv("ALLOCATION_ALLOW_PARTIAL", "true")
	t.Setenv("DRAFT_TTL", "90m")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("OUTBOX_BATCH_SIZE", "10")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Allocation.MaxLots)
	assert.True(t, cfg.Allocation.AllowPartial)
	assert.Equal(t, 90*time.Minute, cfg.Redis.DraftTTL)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Redis.URL)
	assert.Equal(t, 10, cfg.Outbox.BatchSize)
}

func TestLoad_MaxLotsInvalido(t *testing.T) {
	t.Setenv("ALLOCATION_MAX_LOTS", "0")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "lotledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/lotledger?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
