package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New("debug", "json", zapcore.AddSync(&buf))
		require.NoError(t, err)
		log.Debug("commit transaction", zap.String("label", "add order"))
		require.NoError(t, log.Sync())

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "debug", entry["level"])
		assert.Equal(t, "casegen", entry["logger"])
		assert.Equal(t, "commit transaction", entry["msg"])
		assert.Equal(t, "add order", entry["label"])
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New("WARN", "console", zapcore.AddSync(&buf))
		require.NoError(t, err)
		log.Info("hidden")
		log.Warn("regeneration failed")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "WARN")
		assert.Contains(t, buf.String(), "regeneration failed")
	})

	t.Run("defaults", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New("", "", zapcore.AddSync(&buf))
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := New("loud", "console", zapcore.AddSync(&bytes.Buffer{}))
		assert.Error(t, err)
		_, err = New("info", "xml", zapcore.AddSync(&bytes.Buffer{}))
		assert.Error(t, err)
	})
}
