package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-ledstrip/internal/config"
)

func TestLogDriverReadyNamesTheDriver(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Defaults()
	cfg.Driver = "opc"
	cfg.LEDCount = 900
	logDriverReady(zerolog.New(&buf), cfg)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "opc", line["driver"])
	assert.Equal(t, float64(900), line["count"])
}
