package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewConsoleOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, closeLog, err := New(Options{Console: zapcore.AddSync(&buf)})
	require.NoError(t, err)
	defer closeLog()

	log.Infow("session opened", "host", "bmc.example.com")
	log.Debugw("hidden without debug")

	out := buf.String()
	assert.Contains(t, out, "session opened")
	assert.NotContains(t, out, "hidden without debug")
}

func TestNewDebugRaisesConsoleLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, closeLog, err := New(Options{Debug: true, Console: zapcore.AddSync(&buf)})
	require.NoError(t, err)
	defer closeLog()

	log.Debugw("verbose detail")
	assert.Contains(t, buf.String(), "verbose detail")
}

func TestNewWritesLogFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var buf bytes.Buffer
	log, closeLog, err := New(Options{Dir: dir, FileName: "run.log", Console: zapcore.AddSync(&buf)})
	require.NoError(t, err)

	log.Debugw("file captures debug even without --debug")
	closeLog()

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "file captures debug even without --debug")
	assert.NotContains(t, buf.String(), "file captures debug")
}
