package tui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/picsweep/pkg/picsweep/ledger"
	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/session"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

type fixture struct {
	dir    string
	full   string
	low    string
	single string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "Image")
	require.NoError(t, os.Mkdir(dir, 0o755))

	f := fixture{
		dir:    dir,
		full:   filepath.Join(dir, "abc_0.jpg"),
		low:    filepath.Join(dir, "abc_720.jpg"),
		single: filepath.Join(dir, "xyz.png"),
	}
	require.NoError(t, os.WriteFile(f.full, make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(f.low, make([]byte, 40), 0o644))
	require.NoError(t, os.WriteFile(f.single, make([]byte, 10), 0o644))
	return f
}

func newTestModel(t *testing.T, opts Options) Model {
	t.Helper()

	if opts.OpenSession == nil {
		opts.OpenSession = func(n session.Notifier) (*session.Session, error) {
			return session.New(nil, session.WithNotifier(n)), nil
		}
	}

	m, err := NewModel(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	if opts.Folder != "" {
		updated, _ := m.Update(loadMsg{dir: opts.Folder})
		m = updated.(Model)
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		updated, _ := m.Update(keyMsg(k))
		m = updated.(Model)
	}
	return m
}

func TestNewModel_RequiresSession(t *testing.T) {
	_, err := NewModel(Options{})
	assert.Error(t, err)

	want := errors.New("boom")
	_, err = NewModel(Options{OpenSession: func(session.Notifier) (*session.Session, error) {
		return nil, want
	}})
	assert.ErrorIs(t, err, want)
}

func TestModel_LoadOnStart(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir})

	assert.Equal(t, StateBrowse, m.state)
	assert.Equal(t, 2, m.sess.Count())
	assert.Equal(t, f.dir, m.sess.Dir())
	assert.Equal(t, "2 images, 1 group", m.status)

	view := m.View()
	assert.Contains(t, view, "abc_0.jpg")
	assert.Contains(t, view, "Group of 2")
	assert.Contains(t, view, "abc_720.jpg")
	assert.Contains(t, view, "1 / 2")
}

func TestModel_Navigation(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir})

	m = press(m, "right")
	assert.Equal(t, 1, m.index)
	m = press(m, "l", "l")
	assert.Equal(t, 1, m.index, "clamped at the last item")
	m = press(m, "left", "h", "left")
	assert.Equal(t, 0, m.index)
}

func TestModel_KeepThenApply(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir, Mode: types.ModeBackup})

	m = press(m, "k")
	assert.Equal(t, 1, m.index, "moves to the next image")
	assert.Equal(t, ledger.Summary{Keep: 1, Delete: 1}, m.sess.Pending())
	assert.Equal(t, "keep abc_0.jpg, delete 1 smaller copy", m.status)

	m = press(m, "left")
	assert.Contains(t, m.View(), "KEEP")
	assert.Contains(t, m.View(), "DELETE")

	m = press(m, "a")
	require.Equal(t, StateConfirm, m.state)
	assert.Equal(t, modeIndex(types.ModeBackup), m.modeCursor)
	assert.Contains(t, m.View(), "Keep 1, delete 1.")

	m = press(m, "right")
	assert.Equal(t, types.ModeDirect, modeChoices[m.modeCursor])

	m = press(m, "enter")
	assert.Equal(t, StateBrowse, m.state)
	assert.Equal(t, types.ModeDirect, m.mode)
	assert.FileExists(t, f.full)
	assert.NoFileExists(t, f.low)
	assert.Equal(t, ledger.Summary{}, m.sess.Pending())
	assert.Equal(t, "applied 2, removed 1 file", m.status)
	assert.False(t, m.statusErr)
}

func TestModel_DeleteRemovesItemAndClamps(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir, Mode: types.ModeDirect})

	m = press(m, "right", "d")
	assert.Equal(t, 1, m.index)
	assert.Equal(t, "delete xyz.png", m.status)

	m = press(m, "a", "enter")
	assert.NoFileExists(t, f.single)
	assert.Equal(t, 1, m.sess.Count())
	assert.Equal(t, 0, m.index)
}

func TestModel_ConfirmCancel(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir})

	m = press(m, "k", "a", "esc")
	assert.Equal(t, StateBrowse, m.state)
	assert.Equal(t, "apply cancelled", m.status)
	assert.Equal(t, 2, m.sess.Pending().Total())
	assert.FileExists(t, f.low)
}

func TestModel_ApplyNothingPending(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir})

	m = press(m, "a")
	assert.Equal(t, StateBrowse, m.state)
	assert.Equal(t, "nothing to apply", m.status)
}

func TestModel_Undo(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir})

	m = press(m, "d")
	assert.Equal(t, "delete abc_0.jpg and 1 variant", m.status)
	assert.Equal(t, 1, m.index)

	m = press(m, "u")
	assert.Equal(t, 0, m.index, "focus returns to the undone image")
	assert.Equal(t, "undid delete abc_0.jpg (2 entries)", m.status)
	assert.Equal(t, 0, m.sess.Pending().Total())

	m = press(m, "u")
	assert.Equal(t, "nothing to undo", m.status)
}

func TestModel_UndoAfterApply(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir, Mode: types.ModeDirect})

	m = press(m, "k", "a", "enter", "u")
	assert.Equal(t, "decisions were already applied", m.status)
	assert.True(t, m.statusErr)
}

func TestModel_Warning(t *testing.T) {
	f := newFixture(t)
	disabled := false
	m := newTestModel(t, Options{
		Folder:         f.dir,
		ShowWarning:    true,
		DisableWarning: func() error { disabled = true; return nil },
	})

	require.Equal(t, StateWarning, m.state)
	assert.Contains(t, m.View(), "Before you start")

	m = press(m, "x")
	assert.Contains(t, m.View(), "[x]")

	m = press(m, "enter")
	assert.True(t, disabled)
	assert.Equal(t, StateBrowse, m.state)
}

func TestModel_WarningKeepsPreference(t *testing.T) {
	f := newFixture(t)
	disabled := false
	m := newTestModel(t, Options{
		Folder:         f.dir,
		ShowWarning:    true,
		DisableWarning: func() error { disabled = true; return nil },
	})

	m = press(m, "enter")
	assert.False(t, disabled)
	assert.Equal(t, StateBrowse, m.state)
}

func TestModel_OpenFolder(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{})

	require.Equal(t, StateOpen, m.state)
	assert.Contains(t, m.View(), "Open folder")

	m = press(m, f.dir, "enter")
	assert.Equal(t, StateBrowse, m.state)
	assert.Equal(t, f.dir, m.sess.Dir())
	assert.Equal(t, 2, m.sess.Count())
}

func TestModel_OpenCancel(t *testing.T) {
	m := newTestModel(t, Options{})

	m = press(m, "esc")
	assert.Equal(t, StateBrowse, m.state)
	assert.Contains(t, m.View(), "No folder loaded")

	m = press(m, "o")
	assert.Equal(t, StateOpen, m.state)
}

func TestModel_OpenMissingFolder(t *testing.T) {
	m := newTestModel(t, Options{})

	m = press(m, filepath.Join(t.TempDir(), "missing"), "enter")
	assert.Equal(t, StateBrowse, m.state)
	assert.True(t, m.statusErr)
	assert.Equal(t, 0, m.sess.Count())
}

func TestModel_FolderChangedAndRescan(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir})

	updated, _ := m.Update(folderChangedMsg{dir: "/elsewhere"})
	m = updated.(Model)
	assert.False(t, m.stale)

	updated, _ = m.Update(folderChangedMsg{dir: f.dir})
	m = updated.(Model)
	assert.True(t, m.stale)
	assert.Contains(t, m.View(), "CHANGED")

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "new.jpg"), make([]byte, 5), 0o644))
	m = press(m, "k", "r")
	assert.False(t, m.stale)
	assert.Equal(t, 3, m.sess.Count())
	assert.Equal(t, 2, m.sess.Pending().Total(), "rescan of the same folder keeps decisions")
}

func TestModel_OwnCommitIsNotAnOutsideChange(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir, Mode: types.ModeDirect})

	m = press(m, "k", "a", "enter")
	status := m.status
	require.Contains(t, status, "applied 2")

	updated, _ := m.Update(folderChangedMsg{dir: f.dir})
	m = updated.(Model)
	assert.False(t, m.stale)
	assert.Equal(t, status, m.status)

	m.ownWritesUntil = time.Time{}
	updated, _ = m.Update(folderChangedMsg{dir: f.dir})
	m = updated.(Model)
	assert.True(t, m.stale)
	assert.Contains(t, m.status, "folder changed on disk")
}

func TestModel_FolderChangedKeepsErrorStatus(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir})

	m.setStatus("applied 2, removed 0 files, 1 failed", true)
	updated, _ := m.Update(folderChangedMsg{dir: f.dir})
	m = updated.(Model)

	assert.True(t, m.stale)
	assert.Equal(t, "applied 2, removed 0 files, 1 failed", m.status)
	assert.True(t, m.statusErr)
}

func TestModel_LogPanel(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir})

	m = press(m, "L")
	assert.True(t, m.logs.Open)

	updated, _ := m.Update(logEntryMsg(logging.Entry{
		Time:      time.Now(),
		Level:     logging.LevelWarn,
		Component: "commit",
		Message:   "backup folder is on another device",
	}))
	m = updated.(Model)
	assert.Contains(t, m.View(), "backup folder is on another device")

	m = press(m, "4")
	assert.Equal(t, logging.LevelError, m.logs.FilterLevel)
	assert.NotContains(t, m.View(), "backup folder is on another device")

	m = press(m, "1")
	assert.Equal(t, logging.LevelDebug, m.logs.FilterLevel)

	m = press(m, "L")
	assert.False(t, m.logs.Open)
}

func TestModel_Quit(t *testing.T) {
	f := newFixture(t)
	m := newTestModel(t, Options{Folder: f.dir})

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestDescribeDecision(t *testing.T) {
	op := func(path string, a types.Action) types.PendingOperation {
		return types.PendingOperation{Path: path, Action: a}
	}

	tests := []struct {
		name   string
		action types.Action
		res    ledger.Result
		want   string
	}{
		{
			name:   "standalone keep",
			action: types.ActionKeep,
			res:    ledger.Result{Applied: []types.PendingOperation{op("/d/x.png", types.ActionKeep)}},
			want:   "keep x.png",
		},
		{
			name:   "keep with two smaller copies",
			action: types.ActionKeep,
			res: ledger.Result{Applied: []types.PendingOperation{
				op("/d/x_0.png", types.ActionKeep),
				op("/d/x_720.png", types.ActionDelete),
				op("/d/x_480.png", types.ActionDelete),
			}},
			want: "keep x_0.png, delete 2 smaller copies",
		},
		{
			name:   "delete with overwrite",
			action: types.ActionDelete,
			res: ledger.Result{
				Applied:     []types.PendingOperation{op("/d/x.png", types.ActionDelete)},
				Overwritten: []types.PendingOperation{op("/d/x.png", types.ActionKeep)},
			},
			want: "delete x.png (replaced 1 earlier decision)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := filepath.Base(tt.res.Applied[0].Path)
			assert.Equal(t, tt.want, describeDecision(name, tt.action, tt.res))
		})
	}
}
