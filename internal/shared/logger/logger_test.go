package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Level(t *testing.T) {
	l, err := New("chance-service", "prod", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))

	l, err = New("chance-service", "local")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	_, err = New("chance-service", "prod", "loud")
	assert.Error(t, err)
}

func TestWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chance.log")
	base, err := New("chance-service", "prod", "info")
	require.NoError(t, err)

	l := WithFile(base, path)
	l.Info("bet placed", zap.String("round_id", "r1"))
	_ = l.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"round_id":"r1"`)

	assert.Same(t, base, WithFile(base, ""))
}
