package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, lvl Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(lvl)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel(LevelInfo)
		Close()
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"warn":    LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestLevelsFilterBelowMinimum(t *testing.T) {
	buf := captureOutput(t, LevelWarn)

	Debug("dbg %d", 1)
	Info("inf %d", 2)
	Warn("wrn %d", 3)
	Error("err %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "dbg 1")
	assert.NotContains(t, out, "inf 2")
	assert.Contains(t, out, "[WARN] wrn 3")
	assert.Contains(t, out, "[EROR] err 4")
	assert.NotContains(t, out, "\033[", "non-stdout writers get plain text")
}

func TestInitWritesDailyFile(t *testing.T) {
	buf := captureOutput(t, LevelDebug)
	dir := t.TempDir()

	require.NoError(t, Init(dir))
	Info("hello %s", "file")
	Close()

	b, err := os.ReadFile(filepath.Join(dir, "logs", time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "[INFO] hello file"))
	assert.Contains(t, buf.String(), "hello file")
}

func TestInitKeepsExplicitLogsDir(t *testing.T) {
	captureOutput(t, LevelInfo)
	dir := filepath.Join(t.TempDir(), "logs")

	require.NoError(t, Init(dir))
	Close()

	_, err := os.Stat(filepath.Join(dir, "logs"))
	assert.True(t, os.IsNotExist(err))
}
