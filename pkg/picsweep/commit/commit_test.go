package commit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/picsweep/pkg/picsweep/ledger"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRecorder keeps records in memory and can be told to fail.
type memRecorder struct {
	ops []types.PendingOperation
	err error
}

func (r *memRecorder) AddOperation(path string, action types.Action) error {
	if r.err != nil {
		return r.err
	}
	r.ops = append(r.ops, types.PendingOperation{Path: path, Action: action})
	return nil
}

// selfRelated relates every path only to itself.
type selfRelated struct{}

func (selfRelated) FindRelated(path string) []string { return []string{path} }

type fixture struct {
	folder string
	full   string
	low    string
	single string
	ledger *ledger.Ledger
	rec    *memRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	folder := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.Mkdir(folder, 0o755))

	f := &fixture{
		folder: folder,
		full:   filepath.Join(folder, "abc_0.jpg"),
		low:    filepath.Join(folder, "abc_720.jpg"),
		single: filepath.Join(folder, "xyz.png"),
		ledger: ledger.New(selfRelated{}),
		rec:    &memRecorder{},
	}
	require.NoError(t, os.WriteFile(f.full, make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(f.low, make([]byte, 40), 0o644))
	require.NoError(t, os.WriteFile(f.single, make([]byte, 10), 0o644))
	return f
}

func (f *fixture) keepFull() {
	f.ledger.RecordKeep(f.full, []string{f.full, f.low})
}

func confirm(t *testing.T, e *Executor) {
	t.Helper()
	_, err := e.RequestCommit()
	require.NoError(t, err)
	require.Equal(t, StateConfirming, e.State())
}

func TestExecute_BackupMovesSiblings(t *testing.T) {
	f := newFixture(t)
	f.keepFull()

	e := New(f.ledger, f.rec)
	summary, err := e.RequestCommit()
	require.NoError(t, err)
	assert.Equal(t, ledger.Summary{Keep: 1, Delete: 1}, summary)

	report, err := e.Execute(f.folder, types.ModeBackup)
	require.NoError(t, err)

	backup := f.folder + "-recycle"
	assert.Equal(t, backup, report.BackupDir)
	assert.Equal(t, []string{f.low}, report.Deleted)
	assert.Len(t, report.Executed, 2)
	assert.Empty(t, report.Failures)

	assert.FileExists(t, f.full)
	assert.NoFileExists(t, f.low)
	assert.FileExists(t, filepath.Join(backup, "abc_720.jpg"))

	assert.Equal(t, []types.PendingOperation{
		{Path: f.full, Action: types.ActionKeep},
		{Path: f.low, Action: types.ActionDelete},
	}, f.rec.ops)

	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, 0, f.ledger.Count())
	assert.True(t, f.ledger.Applied())

	_, err = f.ledger.Undo()
	assert.ErrorIs(t, err, ledger.ErrAlreadyApplied)
}

func TestExecute_BackupExistingNameRemovesSource(t *testing.T) {
	f := newFixture(t)
	backup := BackupDir(f.folder, DefaultBackupSuffix)
	require.NoError(t, os.Mkdir(backup, 0o755))
	earlier := filepath.Join(backup, "abc_720.jpg")
	require.NoError(t, os.WriteFile(earlier, []byte("earlier"), 0o644))

	f.keepFull()
	e := New(f.ledger, f.rec)
	confirm(t, e)

	report, err := e.Execute(f.folder, types.ModeBackup)
	require.NoError(t, err)
	assert.Equal(t, []string{f.low}, report.Deleted)
	assert.NoFileExists(t, f.low)

	data, err := os.ReadFile(earlier)
	require.NoError(t, err)
	assert.Equal(t, "earlier", string(data))
}

func TestExecute_Direct(t *testing.T) {
	f := newFixture(t)
	f.ledger.RecordDelete(f.single, []string{f.single})

	e := New(f.ledger, f.rec)
	confirm(t, e)

	report, err := e.Execute(f.folder, types.ModeDirect)
	require.NoError(t, err)
	assert.Equal(t, []string{f.single}, report.Deleted)
	assert.Empty(t, report.BackupDir)
	assert.NoFileExists(t, f.single)
	assert.NoDirExists(t, f.folder+"-recycle")
}

func TestExecute_Trash(t *testing.T) {
	f := newFixture(t)
	f.ledger.RecordDelete(f.single, []string{f.single})

	var trashed []string
	e := New(f.ledger, f.rec, WithTrasher(func(p string) error {
		trashed = append(trashed, p)
		return os.Remove(p)
	}))
	confirm(t, e)

	report, err := e.Execute(f.folder, types.ModeTrash)
	require.NoError(t, err)
	assert.Equal(t, []string{f.single}, trashed)
	assert.Equal(t, []string{f.single}, report.Deleted)
}

func TestExecute_MissingFileSkipped(t *testing.T) {
	f := newFixture(t)
	f.keepFull()
	require.NoError(t, os.Remove(f.low))

	e := New(f.ledger, f.rec)
	confirm(t, e)

	report, err := e.Execute(f.folder, types.ModeDirect)
	require.NoError(t, err)
	assert.Empty(t, report.Deleted)
	assert.Equal(t, []types.PendingOperation{{Path: f.full, Action: types.ActionKeep}}, report.Executed)
	assert.Len(t, f.rec.ops, 1)
}

func TestExecute_PerFileFailureContinues(t *testing.T) {
	f := newFixture(t)
	f.ledger.RecordDelete(f.low, []string{f.low})
	f.ledger.RecordDelete(f.single, []string{f.single})

	e := New(f.ledger, f.rec, WithTrasher(func(p string) error {
		if p == f.low {
			return os.ErrPermission
		}
		return os.Remove(p)
	}))
	confirm(t, e)

	report, err := e.Execute(f.folder, types.ModeTrash)
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, f.low, report.Failures[0].Path)
	assert.ErrorIs(t, report.Failures[0], ErrFilesystemWrite)
	assert.ErrorIs(t, report.Failures[0], os.ErrPermission)

	assert.Equal(t, []string{f.single}, report.Deleted)
	assert.FileExists(t, f.low)
	assert.Len(t, f.rec.ops, 1)
}

func TestExecute_RecorderFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.keepFull()
	f.rec.err = errors.New("disk full")

	e := New(f.ledger, f.rec)
	confirm(t, e)

	report, err := e.Execute(f.folder, types.ModeDirect)
	require.NoError(t, err)
	assert.Len(t, report.Warnings, 2)
	assert.Len(t, report.Executed, 2)
}

func TestExecute_NilRecorder(t *testing.T) {
	f := newFixture(t)
	f.keepFull()

	e := New(f.ledger, nil)
	confirm(t, e)

	_, err := e.Execute(f.folder, types.ModeDirect)
	require.NoError(t, err)
}

func TestExecute_BackupDirCreateFails(t *testing.T) {
	f := newFixture(t)
	// A regular file where the backup folder should go.
	require.NoError(t, os.WriteFile(f.folder+"-recycle", nil, 0o644))

	f.keepFull()
	e := New(f.ledger, f.rec)
	confirm(t, e)

	_, err := e.Execute(f.folder, types.ModeBackup)
	assert.ErrorIs(t, err, ErrBackupDirCreate)

	assert.Equal(t, 2, f.ledger.Count())
	assert.False(t, f.ledger.Applied())
	assert.Equal(t, StateIdle, e.State())
	assert.FileExists(t, f.low)
	assert.Empty(t, f.rec.ops)
}

func TestRequestCommit_NothingPending(t *testing.T) {
	f := newFixture(t)
	e := New(f.ledger, f.rec)

	_, err := e.RequestCommit()
	assert.ErrorIs(t, err, ErrNothingPending)
	assert.Equal(t, StateIdle, e.State())
	assert.NoDirExists(t, f.folder+"-recycle")
}

func TestExecute_RequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	f.keepFull()
	e := New(f.ledger, f.rec)

	_, err := e.Execute(f.folder, types.ModeDirect)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.FileExists(t, f.low)

	confirm(t, e)
	e.Cancel()
	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, 2, f.ledger.Count())

	_, err = e.Execute(f.folder, types.ModeDirect)
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

func TestExecute_LedgerClearedAfterConfirm(t *testing.T) {
	f := newFixture(t)
	f.keepFull()
	e := New(f.ledger, f.rec)
	confirm(t, e)

	f.ledger.Clear()
	_, err := e.Execute(f.folder, types.ModeBackup)
	assert.ErrorIs(t, err, ErrNothingPending)
	assert.Equal(t, StateIdle, e.State())
	assert.NoDirExists(t, f.folder+"-recycle")
}

func TestExecute_InvalidMode(t *testing.T) {
	f := newFixture(t)
	f.keepFull()
	e := New(f.ledger, f.rec)
	confirm(t, e)

	_, err := e.Execute(f.folder, types.Mode(9))
	assert.ErrorIs(t, err, types.ErrInvalidMode)
	assert.Equal(t, 2, f.ledger.Count())
}

func TestWithBackupSuffix(t *testing.T) {
	f := newFixture(t)
	f.keepFull()
	e := New(f.ledger, f.rec, WithBackupSuffix(".trashcan"))
	confirm(t, e)

	report, err := e.Execute(f.folder, types.ModeBackup)
	require.NoError(t, err)
	assert.Equal(t, f.folder+".trashcan", report.BackupDir)
	assert.FileExists(t, filepath.Join(report.BackupDir, "abc_720.jpg"))
}

func TestBackupDir(t *testing.T) {
	tests := []struct {
		folder string
		want   string
	}{
		{"/data/cache", "/data/cache-recycle"},
		{"/data/cache/", "/data/cache-recycle"},
		{"cache", "cache-recycle"},
	}
	for _, tt := range tests {
		assert.Equal(t, filepath.FromSlash(tt.want), BackupDir(filepath.FromSlash(tt.folder), DefaultBackupSuffix))
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "confirming", StateConfirming.String())
	assert.Equal(t, "applied", StateApplied.String())
	assert.Equal(t, "unknown", State(7).String())
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	require.NoError(t, os.WriteFile(src, []byte("pixels"), 0o600))

	require.NoError(t, copyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	// Existing destinations are never overwritten.
	assert.Error(t, copyFile(src, dst))
}
