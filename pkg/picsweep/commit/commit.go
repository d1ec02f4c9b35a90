// Package commit applies staged ledger decisions to the filesystem.
//
// Committing is a two-step exchange: RequestCommit summarizes the ledger and
// arms the executor, and Execute may only run while armed. Kept files are
// left alone. Deleted files are moved to a sibling backup folder, removed
// permanently, or sent to the system trash depending on the mode.
package commit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/picsweep/pkg/picsweep/audit"
	"github.com/jamesainslie/picsweep/pkg/picsweep/ledger"
	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/trash"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// DefaultBackupSuffix is appended to the scanned folder name to form the
// backup folder.
const DefaultBackupSuffix = "-recycle"

var (
	// ErrNothingPending is returned when the ledger is empty.
	ErrNothingPending = errors.New("no pending operations")

	// ErrNotConfirmed is returned by Execute without a prior RequestCommit.
	ErrNotConfirmed = errors.New("commit not confirmed")

	// ErrBackupDirCreate is returned when the backup folder cannot be created.
	ErrBackupDirCreate = errors.New("cannot create backup folder")

	// ErrFilesystemWrite wraps a per-file failure during Execute.
	ErrFilesystemWrite = errors.New("filesystem write failed")
)

// State is the position of the executor in the commit exchange.
type State int

const (
	StateIdle State = iota
	StateConfirming
	StateApplied
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfirming:
		return "confirming"
	case StateApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// Failure is a delete entry that could not be applied.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// Unwrap returns the underlying error.
func (f Failure) Unwrap() error {
	return f.Err
}

// Report describes a finished Execute.
type Report struct {
	// Executed lists every entry that was applied, keeps included.
	Executed []types.PendingOperation

	// Deleted lists paths that no longer exist in the folder.
	Deleted []string

	Failures []Failure

	// Warnings are non-fatal problems, such as audit write errors.
	Warnings []string

	// BackupDir is set in backup mode.
	BackupDir string

	Mode types.Mode
}

// Executor applies the ledger. It is not safe for concurrent use.
type Executor struct {
	ledger   *ledger.Ledger
	recorder audit.Recorder
	suffix   string
	trasher  func(string) error
	log      *logging.Logger
	state    State
}

// Option configures an Executor.
type Option func(*Executor)

// WithBackupSuffix sets the suffix of the backup folder name.
func WithBackupSuffix(suffix string) Option {
	return func(e *Executor) {
		if suffix != "" {
			e.suffix = suffix
		}
	}
}

// WithTrasher replaces the function used in trash mode.
func WithTrasher(fn func(string) error) Option {
	return func(e *Executor) {
		if fn != nil {
			e.trasher = fn
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an executor for l. A nil recorder discards audit records.
func New(l *ledger.Ledger, recorder audit.Recorder, opts ...Option) *Executor {
	e := &Executor{
		ledger:   l,
		recorder: recorder,
		suffix:   DefaultBackupSuffix,
		trasher:  trash.MoveToTrash,
		log:      logging.Get("commit"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current state.
func (e *Executor) State() State {
	return e.state
}

// BackupDir returns the backup folder Execute would use for folder.
func (e *Executor) BackupDir(folder string) string {
	return BackupDir(folder, e.suffix)
}

// BackupDir returns the sibling folder named after folder plus suffix.
func BackupDir(folder, suffix string) string {
	clean := filepath.Clean(folder)
	return filepath.Join(filepath.Dir(clean), filepath.Base(clean)+suffix)
}

// RequestCommit summarizes the pending entries and arms Execute. It never
// touches the filesystem.
func (e *Executor) RequestCommit() (ledger.Summary, error) {
	if e.ledger.Count() == 0 {
		e.state = StateIdle
		return ledger.Summary{}, ErrNothingPending
	}
	e.state = StateConfirming
	return e.ledger.Summary(), nil
}

// Cancel disarms a requested commit. The ledger is untouched.
func (e *Executor) Cancel() {
	if e.state == StateConfirming {
		e.state = StateIdle
	}
}

// Execute applies every pending entry to folder. Per-file failures are
// collected in the report and do not stop the batch. On return the ledger
// is marked applied and the executor is idle again.
func (e *Executor) Execute(folder string, mode types.Mode) (Report, error) {
	if e.state != StateConfirming {
		return Report{}, ErrNotConfirmed
	}
	if e.ledger.Count() == 0 {
		e.state = StateIdle
		return Report{}, ErrNothingPending
	}

	report := Report{Mode: mode}

	switch mode {
	case types.ModeBackup:
		report.BackupDir = e.BackupDir(folder)
		if err := os.MkdirAll(report.BackupDir, 0o755); err != nil {
			e.state = StateIdle
			return Report{}, fmt.Errorf("%w %s: %w", ErrBackupDirCreate, report.BackupDir, err)
		}
	case types.ModeDirect, types.ModeTrash:
	default:
		e.state = StateIdle
		return Report{}, fmt.Errorf("%w: %d", types.ErrInvalidMode, mode)
	}

	log := e.log.With("mode", mode.String())
	log.Info("executing", "folder", folder, "pending", e.ledger.Count())

	for _, op := range e.ledger.Operations() {
		if op.Action == types.ActionDelete {
			if _, err := os.Lstat(op.Path); os.IsNotExist(err) {
				log.Debug("already gone", "path", op.Path)
				continue
			}
			if err := e.remove(op.Path, mode, report.BackupDir); err != nil {
				failure := Failure{Path: op.Path, Err: fmt.Errorf("%w: %w", ErrFilesystemWrite, err)}
				report.Failures = append(report.Failures, failure)
				log.Error("delete failed", "path", op.Path, "error", err)
				continue
			}
			report.Deleted = append(report.Deleted, op.Path)
		}

		report.Executed = append(report.Executed, op)
		if e.recorder != nil {
			if err := e.recorder.AddOperation(op.Path, op.Action); err != nil {
				report.Warnings = append(report.Warnings, err.Error())
				log.Warn("audit write failed", "path", op.Path, "error", err)
			}
		}
	}

	e.ledger.MarkApplied()
	e.state = StateApplied
	log.Info("commit applied",
		"executed", len(report.Executed),
		"deleted", len(report.Deleted),
		"failed", len(report.Failures))
	e.state = StateIdle

	return report, nil
}

// remove takes path out of the scanned folder according to mode.
func (e *Executor) remove(path string, mode types.Mode, backupDir string) error {
	switch mode {
	case types.ModeDirect:
		return os.Remove(path)
	case types.ModeTrash:
		return e.trasher(path)
	default:
		target := filepath.Join(backupDir, filepath.Base(path))
		if _, err := os.Lstat(target); err == nil {
			// Never overwrite an earlier backup.
			e.log.Debug("backup exists, removing source", "path", path, "backup", target)
			return os.Remove(path)
		}
		return moveFile(path, target)
	}
}
