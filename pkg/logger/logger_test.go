package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow-api/pkg/logger"
)

func TestNew_JSONConServicio(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "warn", Service: "worker", Output: &buf})

	log.Info().Msg("descartado")
	log.Warn().Str("company_id", "company-1").Msg("consulta pendiente")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "worker", line["service"])
	assert.Equal(t, "company-1", line["company_id"])
	assert.Equal(t, "consulta pendiente", line["message"])
	assert.Contains(t, line, "time")
}

func TestNew_DevelopmentDebugPorDefecto(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "development", Output: &buf})

	log.Debug().Msg("detalle")
	assert.Contains(t, buf.String(), "detalle")
	assert.Contains(t, buf.String(), "DBG")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { logger.Nop().Error().Msg("nada") })
}
