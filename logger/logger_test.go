package logger

import (
	"os"
	"path/filepath"
	"testing"

	"cryptonics/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestNewWritesRotatedFile
func TestNewWritesRotatedFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "logs", "app.log")

	log, err := New(config.LogConfig{
		Level:       "debug",
		Format:      "json",
		OutputFile:  out,
		Environment: "prod",
	})
	require.NoError(t, err)

	log.Info("hello from test")
	_ = log.Sync()

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hello from test")
	assert.Contains(t, string(body), `"service":"cryptonics"`)
}

// go test -v --run TestNewInvalidLevel
func TestNewInvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
