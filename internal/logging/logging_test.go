package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KyousabaMC/VeinMiner/internal/config"
)

func TestNew_JSONStdout(t *testing.T) {
	var buf bytes.Buffer
	log, err := newWithStdout(config.LogConfig{Level: "debug", Format: "json", Output: "stdout"}, &buf)
	require.NoError(t, err)

	log.Named("server").Debug("tick", zap.Int("n", 3))
	require.NoError(t, log.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "server", line["logger"])
	assert.Equal(t, "tick", line["msg"])
	assert.EqualValues(t, 3, line["n"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := newWithStdout(config.LogConfig{Level: "warn", Format: "console"}, &buf)
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_FileOutputSplitsErrors(t *testing.T) {
	dir := t.TempDir()
	log, err := New(config.LogConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File:   config.LogFileConfig{Path: dir, Filename: "vm.log", MaxSize: 1},
	})
	require.NoError(t, err)
	log.Info("hello")
	log.Error("boom")
	_ = log.Sync()

	main, err := os.ReadFile(filepath.Join(dir, "vm.log"))
	require.NoError(t, err)
	assert.Contains(t, string(main), "hello")
	assert.Contains(t, string(main), "boom")

	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(errs), "hello")
	assert.Contains(t, string(errs), "boom")
}

func TestParseLevel_Unknown(t *testing.T) {
	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}
