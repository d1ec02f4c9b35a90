package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// isolate points HOME and the working directory at fresh temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Chdir(t.TempDir())
	return home
}

func writeConfig(t *testing.T, home, content string) string {
	t.Helper()
	dir := filepath.Join(home, ".config", "picsweep")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.ShowWarning)
	assert.Equal(t, DefaultPath, cfg.DefaultPath)
	assert.Equal(t, DefaultMode, cfg.Mode)
	assert.Equal(t, DefaultBackupSuffix, cfg.BackupSuffix)
	assert.Equal(t, DefaultAuditBackend, cfg.Audit.Backend)
	assert.Empty(t, cfg.Audit.Path)
	assert.True(t, cfg.Manifest.Enabled)
	assert.Equal(t, filepath.Join(home, ".config", "picsweep", ".manifest"), cfg.Manifest.Path)
	assert.Equal(t, DefaultRetentionDays, cfg.Manifest.RetentionDays)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "10MB", cfg.Logging.Rotation.MaxSize)
	assert.Equal(t, "warn", cfg.Logging.Components["watcher"])
	assert.Empty(t, cfg.File)

	mode, err := cfg.CommitMode()
	require.NoError(t, err)
	assert.Equal(t, types.ModeBackup, mode)
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home, `
show_warning: false
default_path: ~/chat/Image
mode: trash
backup_suffix: .bak
audit:
  backend: badger
  path: /var/lib/picsweep
manifest:
  enabled: false
  retention_days: 7
logging:
  level: debug
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.ShowWarning)
	assert.Equal(t, filepath.Join(home, "chat", "Image"), cfg.DefaultPath)
	assert.Equal(t, "trash", cfg.Mode)
	assert.Equal(t, ".bak", cfg.BackupSuffix)
	assert.Equal(t, "badger", cfg.Audit.Backend)
	assert.Equal(t, "/var/lib/picsweep", cfg.Audit.Path)
	assert.False(t, cfg.Manifest.Enabled)
	assert.Equal(t, 7, cfg.Manifest.RetentionDays)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_XDGConfigHome(t *testing.T) {
	isolate(t)
	xdgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgHome)

	dir := filepath.Join(xdgHome, "picsweep")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("mode: direct\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "direct", cfg.Mode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "mode: direct\n")
	t.Setenv("PICSWEEP_MODE", "trash")
	t.Setenv("PICSWEEP_AUDIT_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "trash", cfg.Mode)
	assert.Equal(t, "memory", cfg.Audit.Backend)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PICSWEEP_BACKUP_SUFFIX", "")
	os.Unsetenv("PICSWEEP_BACKUP_SUFFIX")
	require.NoError(t, os.WriteFile(EnvFile, []byte("PICSWEEP_BACKUP_SUFFIX=-old\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PICSWEEP_BACKUP_SUFFIX") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "-old", cfg.BackupSuffix)
}

func TestLoad_InvalidMode(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "mode: shred\n")

	_, err := Load()
	assert.ErrorIs(t, err, types.ErrInvalidMode)
}

func TestLoad_MalformedFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "mode: [unterminated\n")

	_, err := Load()
	assert.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	home := isolate(t)

	path, err := WriteDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "picsweep", "config.yaml"), path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.True(t, cfg.ShowWarning)
	assert.Equal(t, DefaultBackupSuffix, cfg.BackupSuffix)

	// Existing files are left alone.
	require.NoError(t, os.WriteFile(path, []byte("mode: direct\n"), 0o644))
	_, err = WriteDefault()
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mode: direct\n", string(data))
}

func TestSetShowWarning(t *testing.T) {
	home := isolate(t)

	require.NoError(t, SetShowWarning(false))
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.ShowWarning)

	data, err := os.ReadFile(filepath.Join(home, ".config", "picsweep", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Commit mode")

	require.NoError(t, SetShowWarning(true))
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.ShowWarning)
}

func TestSetShowWarning_AddsMissingKey(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "mode: direct\n")

	require.NoError(t, SetShowWarning(false))

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.ShowWarning)
	assert.Equal(t, "direct", cfg.Mode)
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	got, err := ExpandPath("~/pics")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "pics"), got)

	got, err = ExpandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}

func TestDefaultAuditPath(t *testing.T) {
	assert.Equal(t, "audit.db", filepath.Base(DefaultAuditPath("sqlite")))
	assert.Equal(t, "audit.badger", filepath.Base(DefaultAuditPath("badger")))
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: trash\nbackup_suffix: -old\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "trash", cfg.Mode)
	assert.Equal(t, "-old", cfg.BackupSuffix)
	assert.Equal(t, path, cfg.File)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
