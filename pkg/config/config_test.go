package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow-api/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DIAN_APP_ENV", "dev")
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "retain", cfg.DIAN.FailedSendPolicy)
	assert.Equal(t, 30*time.Second, cfg.DIAN.Timeout)
	assert.Equal(t, "130505", cfg.Accounting.ReceivableAccount)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DIAN_APP_ENV", "TEST")
	t.Setenv("DIAN_FAILED_SEND_POLICY", "consume")
	t.Setenv("DIAN_TIMEOUT_SECONDS", "5")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.DIAN.AppEnv)
	assert.Equal(t, "consume", cfg.DIAN.FailedSendPolicy)
	assert.Equal(t, 5*time.Second, cfg.DIAN.Timeout)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
}

func TestLoad_PoliticaInvalida(t *testing.T) {
	t.Setenv("DIAN_APP_ENV", "dev")
	t.Setenv("DIAN_FAILED_SEND_POLICY", "discard")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDSN_EscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "stockflow", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/stockflow?sslmode=disable", c.DSN())
}

func TestLoad_Pool(t *testing.T) {
	t.Setenv("DIAN_APP_ENV", "dev")
	t.Setenv("DB_LOCK_TIMEOUT_SECONDS", "3")
	t.Setenv("DB_FORCE_IPV4", "true")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, int32(25), cfg.DB.MaxConns)
	assert.Equal(t, 3*time.Second, cfg.DB.LockTimeout)
	assert.True(t, cfg.DB.ForceIPv4)

	t.Setenv("DB_MIN_CONNS", "30")
	_, err = config.Load()
	assert.Error(t, err)
}
