package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, false)
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")

	buf.Reset()
	logger = newLogger(&buf, true)
	logger.Debug().Msg("visible in debug")
	assert.Contains(t, buf.String(), "visible in debug")
}
