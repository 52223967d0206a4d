package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lotledger/pkg/logger"
)

func TestParseLevel_DesconocidoEsInfo(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, logger.ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("ruido"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
}

func TestComponent_AgregaCampo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "info", Output: &buf})

	l.Component("outbox").Info().Str("event_id", "e1").Msg("publicado")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "outbox", line["component"])
	assert.Equal(t, "e1", line["event_id"])
	assert.Equal(t, "publicado", line["message"])
}

func TestNivel_FiltraDebug(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "warn", Output: &buf})

	l.Info().Msg("no debe salir")
	assert.Zero(t, buf.Len())
}
