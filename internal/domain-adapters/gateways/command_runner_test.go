package gateways

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestCommandRunner_Success(t *testing.T) {
	skipOnWindows(t)
	r := NewCommandRunner(nil)

	result := r.RunWithTimeout(context.Background(), "/bin/sh", []string{"-c", "echo 'Hello, World!'"}, time.Minute)

	assert.True(t, result.Success, "error: %v", result.Error)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "Hello, World!\n", result.Stdout)
	assert.False(t, result.TimedOut)
}

func TestCommandRunner_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	r := NewCommandRunner(nil)

	result := r.RunWithTimeout(context.Background(), "/bin/sh", []string{"-c", "echo oops >&2; exit 42"}, time.Minute)

	assert.False(t, result.Success)
	assert.Equal(t, 42, result.ExitCode)
	assert.Equal(t, "oops\n", result.Stderr)
	assert.False(t, result.TimedOut)
}

func TestCommandRunner_Timeout(t *testing.T) {
	skipOnWindows(t)
	r := NewCommandRunner(nil)

	start := time.Now()
	result := r.RunWithTimeout(context.Background(), "/bin/sh", []string{"-c", "sleep 5"}, 100*time.Millisecond)

	assert.False(t, result.Success)
	assert.True(t, result.TimedOut)
	assert.Error(t, result.Error)
	assert.Less(t, time.Since(start), 2*time.Second, "the sleeping child must die with the shell")
}

func TestCommandRunner_TimeoutKillsDescendants(t *testing.T) {
	skipOnWindows(t)
	r := NewCommandRunner(nil)
	late := filepath.Join(t.TempDir(), "late.exe")
	// The inner shell outlives its parent unless the whole group is killed
	script := fmt.Sprintf("sh -c 'exec >/dev/null 2>&1; sleep 1; echo x > %s'; :", late)

	start := time.Now()
	result := r.RunWithTimeout(context.Background(), "/bin/sh", []string{"-c", script}, 200*time.Millisecond)

	assert.True(t, result.TimedOut)
	assert.Less(t, time.Since(start), time.Second)

	time.Sleep(1500 * time.Millisecond)
	assert.NoFileExists(t, late, "a descendant kept writing after the timeout")
}

func TestCommandRunner_ParentCancelledIsNotTimeout(t *testing.T) {
	skipOnWindows(t)
	r := NewCommandRunner(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := r.RunWithTimeout(ctx, "/bin/sh", []string{"-c", "sleep 5"}, time.Minute)

	assert.False(t, result.Success)
	assert.False(t, result.TimedOut)
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestCommandRunner_MissingProgram(t *testing.T) {
	r := NewCommandRunner(nil)

	result := r.RunWithTimeout(context.Background(), "/nonexistent/tool", nil, time.Second)

	assert.False(t, result.Success)
	assert.Equal(t, -1, result.ExitCode)
	assert.Error(t, result.Error)
}
