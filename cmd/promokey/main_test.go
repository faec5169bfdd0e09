package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logFile := filepath.Join(t.TempDir(), "out.log")

	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--log-file", logFile))
	err := cmd.Execute()
	require.NoError(t, closeLogging())

	out, readErr := os.ReadFile(logFile)
	if readErr != nil && !os.IsNotExist(readErr) {
		require.NoError(t, readErr)
	}
	return string(out), err
}

func TestDeriveCommand(t *testing.T) {
	out, err := execute(t, "derive", "HappyEaster23", "--target", "1000", "--min-target", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "WIF: YTNuZ1SrRffSiWmQfLFZmVGi6sU5DyDCogR8haMCXLM1uGvQ5wdT")
	assert.Contains(t, out, "Progress: 100%")
}

func TestDeriveCommandRejectsBadVersion(t *testing.T) {
	_, err := execute(t, "derive", "x", "--version-byte", "300")
	assert.Error(t, err)
}

func TestDeriveCommandRejectsWeakTarget(t *testing.T) {
	_, err := execute(t, "derive", "x", "--target", "10")
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	out, err := execute(t, "inspect", "YTNuZ1SrRffSiWmQfLFZmVGi6sU5DyDCogR8haMCXLM1uGvQ5wdT")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: 212 (0xd4)")
	assert.Contains(t, out, "Key: a2ae4255b60ce5466363de176481b3c69730d7a52dbde85524c72a82bd11049c")
}

func TestScheduleCommand(t *testing.T) {
	out, err := execute(t, "schedule")
	require.NoError(t, err)
	assert.Contains(t, out, "0: 12500000 (current)")
}

func TestBatchCommand(t *testing.T) {
	codes := filepath.Join(t.TempDir(), "codes.txt")
	require.NoError(t, os.WriteFile(codes, []byte("HappyEaster23\nother\n"), 0o600))

	out, err := execute(t, "batch", "--codes-file", codes, "--target", "1000", "--min-target", "1", "--workers", "2", "--log-interval", "0")
	require.NoError(t, err)
	assert.Contains(t, out, `#0 "HappyEaster23": YTNuZ1SrRffSiWmQfLFZmVGi6sU5DyDCogR8haMCXLM1uGvQ5wdT`)
	assert.Contains(t, out, `#1 "other": `)
}

func TestLogFileClosedAfterCommand(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "schedule.log")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"schedule", "--log-file", logPath})
	require.NoError(t, cmd.Execute())
	assert.Nil(t, logFile)

	out, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "(current)")
}
