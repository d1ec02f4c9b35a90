package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countLogs counts files in dir that belong to the log named base.
func countLogs(t *testing.T, dir, base string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	prefix := strings.TrimSuffix(base, ".log")
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".log") {
			n++
		}
	}
	return n
}

func TestRotatingWriter_RotatesBySize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "size.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 100})
	require.NoError(t, err)

	// Distinct clock readings keep rotated names unique.
	clock := time.Date(2026, 1, 18, 12, 0, 0, 0, time.Local)
	w.nowFunc = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for i := 0; i < 5; i++ {
		_, err := w.Write([]byte(strings.Repeat("x", 60) + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	assert.Equal(t, 5, countLogs(t, dir, "size.log"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(61), info.Size())
}

func TestRotatingWriter_MaxBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 10, MaxBackups: 2})
	require.NoError(t, err)

	clock := time.Date(2026, 1, 18, 12, 0, 0, 0, time.Local)
	w.nowFunc = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for i := 0; i < 6; i++ {
		_, err := w.Write([]byte("0123456789\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	// Active file plus two backups.
	assert.Equal(t, 3, countLogs(t, dir, "keep.log"))
}

func TestRotatingWriter_Daily(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daily.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 1 << 20, Daily: true})
	require.NoError(t, err)

	_, err = w.Write([]byte("today\n"))
	require.NoError(t, err)

	tomorrow := time.Now().Add(24 * time.Hour)
	w.nowFunc = func() time.Time { return tomorrow }

	_, err = w.Write([]byte("tomorrow\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, 2, countLogs(t, dir, "daily.log"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tomorrow\n", string(data))
}

func TestRotatingWriter_PrunesOldFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "age.log")

	stale := filepath.Join(dir, "age.20200101-000000.000.log")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	old := time.Now().Add(-90 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	w, err := NewRotatingWriter(path, RotationConfig{MaxAge: 30})
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "c.log"), RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRotatingWriter_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.log")
	w, err := NewRotatingWriter(path, RotationConfig{})
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, path, w.Path())
	assert.FileExists(t, path)
}
