package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(&buf, "warn", false)
	require.NoError(t, err)
	log.Info("quiet")
	log.Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), `"msg":"loud"`)
}

func TestBadLevel(t *testing.T) {
	_, err := New("chatty", false)
	assert.Error(t, err)
	_, err = NewWriter(&bytes.Buffer{}, "chatty", false)
	assert.Error(t, err)
}
