package logging

import (
	"bytes"
	"testing"

	"github.com/contre95/posxchange/src/features/config"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.Logger{Enabled: true, Level: "warn", Format: "json"}, &buf)

	logger.Info("Service.Test: hidden")
	logger.Warn("Service.Test: shown", "store_id", "S1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"store_id":"S1"`)
}

func TestNewLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.Logger{Enabled: false, Level: "debug"}, &buf)
	logger.Error("nothing")
	assert.Empty(t, buf.String())
}
