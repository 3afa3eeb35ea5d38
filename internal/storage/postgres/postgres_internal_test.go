package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/config"
)

func TestPoolConfig_SessionParameters(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "sim", Password: "pw", Name: "results", SSLMode: "disable",
		MaxConns: 8, MinConns: 1, MaxConnLifetime: 30 * time.Minute,
		ApplicationName: "skirmish-feed", StatementTimeout: 45 * time.Second,
	}
	poolCfg, err := poolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(8), poolCfg.MaxConns)
	assert.Equal(t, int32(1), poolCfg.MinConns)
	assert.Equal(t, 30*time.Minute, poolCfg.MaxConnLifetime)
	assert.Equal(t, "db.internal", poolCfg.ConnConfig.Host)
	assert.Equal(t, uint16(5433), poolCfg.ConnConfig.Port)
	assert.Equal(t, "skirmish-feed", poolCfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "45000", poolCfg.ConnConfig.RuntimeParams["statement_timeout"])
}

func TestPoolConfig_OptionalParametersOmitted(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "localhost", Port: 5432, User: "sim", Name: "results", SSLMode: "disable", MaxConns: 2}
	poolCfg, err := poolConfig(cfg)
	require.NoError(t, err)
	assert.NotContains(t, poolCfg.ConnConfig.RuntimeParams, "application_name")
	assert.NotContains(t, poolCfg.ConnConfig.RuntimeParams, "statement_timeout")
}

func TestPoolConfig_RejectsBadDSN(t *testing.T) {
	_, err := poolConfig(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "sim", Name: "results", SSLMode: "sometimes"})
	assert.Error(t, err)
}
