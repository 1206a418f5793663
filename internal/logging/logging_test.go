package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
)

func TestNewJSONFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dq.log")

	logger, err := New(domain.LoggingConfig{Level: "debug", Format: "json", Output: OutputFile, Filename: path})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("report_id", "r1").Info("Dataset validation completed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "Dataset validation completed", entry["message"])
	assert.Equal(t, "r1", entry["report_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewDefaults(t *testing.T) {
	logger, err := New(domain.LoggingConfig{Level: "bogus", Format: "text", Output: OutputStderr})
	require.NoError(t, err)

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stderr, logger.Out)
}

func TestNewInvalidOutput(t *testing.T) {
	_, err := New(domain.LoggingConfig{Output: "syslog"})
	assert.Error(t, err)

	_, err = New(domain.LoggingConfig{Output: OutputFile})
	assert.Error(t, err)
}
