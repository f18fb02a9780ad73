package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-console/internal/config"
)

func TestNewWritesToFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"
	cfg.LogFile = filepath.Join(t.TempDir(), "logs", "console.log")

	logger, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("request_id", "abc").Info("hello")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_id":"abc"`)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNewRejectsBadSettings(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "loud"
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = config.Defaults()
	cfg.LogFormat = "xml"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestStderrOnlyCloseIsNoop(t *testing.T) {
	logger, err := New(config.Defaults())
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("dropped")
	assert.Equal(t, logrus.PanicLevel, l.GetLevel())
}
