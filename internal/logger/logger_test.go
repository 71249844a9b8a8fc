package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_WritesPerLevelFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)
	defer l.Close()

	l.Info("camera %d opened", 0)
	l.Warning("classifier %s missing", "lbp")
	l.Error("device read failed")

	info, err := os.ReadFile(filepath.Join(dir, InfoFile))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(info), "camera 0 opened"))

	warning, err := os.ReadFile(filepath.Join(dir, WarningFile))
	require.NoError(t, err)
	require.Contains(t, string(warning), "classifier lbp missing")
	require.NotContains(t, string(warning), "camera 0 opened")

	errorLog, err := os.ReadFile(filepath.Join(dir, ErrorFile))
	require.NoError(t, err)
	require.Contains(t, string(errorLog), "device read failed")
}

func TestLogger_CleanLogs(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)
	defer l.Close()

	l.Error("something broke")
	require.NoError(t, l.CleanLogs(ErrorFile))

	data, err := os.ReadFile(filepath.Join(dir, ErrorFile))
	require.NoError(t, err)
	require.Empty(t, data)

	require.Error(t, l.CleanLogs("../config.yaml"))
}
