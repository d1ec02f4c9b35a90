// Package session ties the catalog, ledger, and commit executor into the
// single engine that user interfaces drive.
//
// A Session is synchronous and not safe for concurrent use: every call runs
// to completion on the caller's goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/picsweep/pkg/picsweep/audit"
	"github.com/jamesainslie/picsweep/pkg/picsweep/catalog"
	"github.com/jamesainslie/picsweep/pkg/picsweep/commit"
	"github.com/jamesainslie/picsweep/pkg/picsweep/ledger"
	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/manifest"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// ErrNoSuchItem is returned for an index outside the active item list.
var ErrNoSuchItem = errors.New("no such item")

// Notifier receives user-facing updates.
type Notifier interface {
	// Message reports one line of activity.
	Message(msg string)

	// PendingChanged reports the new number of pending entries.
	PendingChanged(count int)
}

type nopNotifier struct{}

func (nopNotifier) Message(string)     {}
func (nopNotifier) PendingChanged(int) {}

// CommitReport extends the executor report with session bookkeeping.
type CommitReport struct {
	commit.Report

	// Removed is the number of active items purged from the catalog.
	Removed int

	// ManifestID identifies the history entry, when a manifest is set.
	ManifestID string
}

// UndoReport is the ledger undo result plus where the UI should focus.
type UndoReport struct {
	ledger.UndoResult

	// Focus is the index of the first undone path still in the active
	// list, or -1.
	Focus int
}

// Session is the deduplication engine for one folder at a time.
type Session struct {
	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	executor *commit.Executor
	store    audit.Store
	manifest *manifest.Manifest
	notifier Notifier
	log      *logging.Logger
}

type options struct {
	manifest *manifest.Manifest
	notifier Notifier
	commit   []commit.Option
}

// Option configures a Session.
type Option func(*options)

// WithManifest records every commit in m.
func WithManifest(m *manifest.Manifest) Option {
	return func(o *options) { o.manifest = m }
}

// WithNotifier sends activity messages to n.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithBackupSuffix sets the backup folder suffix.
func WithBackupSuffix(suffix string) Option {
	return func(o *options) { o.commit = append(o.commit, commit.WithBackupSuffix(suffix)) }
}

// WithTrasher replaces the trash-mode remover.
func WithTrasher(fn func(string) error) Option {
	return func(o *options) { o.commit = append(o.commit, commit.WithTrasher(fn)) }
}

// New creates a session that records executed operations in store.
func New(store audit.Store, opts ...Option) *Session {
	o := options{notifier: nopNotifier{}}
	for _, opt := range opts {
		opt(&o)
	}

	cat := catalog.New()
	led := ledger.New(cat)

	var rec audit.Recorder
	if store != nil {
		rec = store
	}

	return &Session{
		catalog:  cat,
		ledger:   led,
		executor: commit.New(led, rec, o.commit...),
		store:    store,
		manifest: o.manifest,
		notifier: o.notifier,
		log:      logging.Get("session"),
	}
}

// Load scans folder. Pending decisions survive a rescan of the same folder
// and are dropped when a different folder is loaded.
func (s *Session) Load(ctx context.Context, folder string) (catalog.LoadResult, error) {
	previous := s.catalog.Dir()

	res, err := s.catalog.Load(ctx, folder)
	if err != nil {
		return res, err
	}

	s.executor.Cancel()
	if previous != "" && previous != s.catalog.Dir() && s.ledger.Count() > 0 {
		s.notify("discarded %d pending operations from %s", s.ledger.Count(), previous)
		s.ledger.Clear()
		s.notifier.PendingChanged(0)
	}

	s.notify("loaded %s: %d images", s.catalog.Dir(), res.Count)
	for _, sk := range res.Skipped {
		s.notify("skipped %s: %s", sk.Filename, sk.Error)
	}
	return res, nil
}

// Items returns a copy of the active items.
func (s *Session) Items() []types.ImageItem {
	return s.catalog.All()
}

// Item returns the active item at i.
func (s *Session) Item(i int) (types.ImageItem, bool) {
	return s.catalog.Get(i)
}

// Count returns the number of active items.
func (s *Session) Count() int {
	return s.catalog.Count()
}

// Dir returns the loaded folder.
func (s *Session) Dir() string {
	return s.catalog.Dir()
}

// Groups returns the number of duplicate groups in the loaded folder.
func (s *Session) Groups() int {
	return s.catalog.Groups()
}

// Related returns the duplicate group of path.
func (s *Session) Related(path string) []string {
	return s.catalog.FindRelated(path)
}

// Keep keeps item i and stages its smaller siblings for deletion.
func (s *Session) Keep(i int) (ledger.Result, error) {
	item, ok := s.catalog.Get(i)
	if !ok {
		return ledger.Result{}, fmt.Errorf("%w: %d", ErrNoSuchItem, i)
	}
	s.disarm()
	res := s.ledger.RecordKeep(item.Path, s.catalog.FindRelated(item.Path))
	s.report(res)
	return res, nil
}

// Delete stages item i and its siblings for deletion.
func (s *Session) Delete(i int) (ledger.Result, error) {
	item, ok := s.catalog.Get(i)
	if !ok {
		return ledger.Result{}, fmt.Errorf("%w: %d", ErrNoSuchItem, i)
	}
	s.disarm()
	res := s.ledger.RecordDelete(item.Path, s.catalog.FindRelated(item.Path))
	s.report(res)
	return res, nil
}

// KeepAll keeps every active item, staging every non-surviving variant for
// deletion. It returns the number of delete entries staged.
func (s *Session) KeepAll() int {
	s.disarm()
	deletes := 0
	for _, item := range s.catalog.All() {
		res := s.ledger.RecordKeep(item.Path, s.catalog.FindRelated(item.Path))
		for _, op := range res.Applied {
			if op.Action == types.ActionDelete {
				deletes++
			}
		}
	}
	s.notify("staged keep for %d items, %d duplicates to delete", s.catalog.Count(), deletes)
	s.notifier.PendingChanged(s.ledger.Count())
	return deletes
}

// disarm drops a requested commit. An approval covers the ledger as it was
// summarized, so any change needs a new RequestCommit.
func (s *Session) disarm() {
	if s.executor.State() == commit.StateConfirming {
		s.executor.Cancel()
		s.log.Debug("pending decisions changed, commit request dropped")
	}
}

func (s *Session) report(res ledger.Result) {
	for _, op := range res.Overwritten {
		s.notify("overwrote %s: %s", op.Action, filepath.Base(op.Path))
	}
	for _, op := range res.Applied {
		s.notify("staged %s: %s", op.Action, filepath.Base(op.Path))
	}
	s.notifier.PendingChanged(s.ledger.Count())
}

// Undo removes the most recent decision and its group.
func (s *Session) Undo() (UndoReport, error) {
	res, err := s.ledger.Undo()
	if err != nil {
		return UndoReport{Focus: -1}, err
	}
	s.disarm()

	focus := -1
	for _, op := range res.Undone {
		s.notify("undid %s: %s", op.Action, filepath.Base(op.Path))
		if focus < 0 {
			focus = s.catalog.IndexOf(op.Path)
		}
	}
	s.notifier.PendingChanged(s.ledger.Count())

	return UndoReport{UndoResult: res, Focus: focus}, nil
}

// Pending returns the pending entry counts.
func (s *Session) Pending() ledger.Summary {
	return s.ledger.Summary()
}

// Operations returns the pending entries in order.
func (s *Session) Operations() []types.PendingOperation {
	return s.ledger.Operations()
}

// BackupDir returns the backup folder for the loaded folder.
func (s *Session) BackupDir() string {
	return s.executor.BackupDir(s.catalog.Dir())
}

// RequestCommit summarizes pending entries for confirmation.
func (s *Session) RequestCommit() (ledger.Summary, error) {
	return s.executor.RequestCommit()
}

// Cancel abandons a requested commit.
func (s *Session) Cancel() {
	s.executor.Cancel()
	s.notify("commit cancelled")
}

// Commit executes the confirmed ledger against the loaded folder, purges
// deleted files from the active list, and records the commit in the
// manifest when one is configured.
func (s *Session) Commit(mode types.Mode) (CommitReport, error) {
	sizes := s.pendingSizes()

	report, err := s.executor.Execute(s.catalog.Dir(), mode)
	if err != nil {
		s.log.Error("commit failed", "error", err)
		return CommitReport{}, err
	}

	out := CommitReport{Report: report}
	out.Removed = s.catalog.RemovePaths(report.Deleted)

	for _, op := range report.Executed {
		s.notify("executed %s: %s", op.Action, filepath.Base(op.Path))
	}
	for _, f := range report.Failures {
		s.notify("failed: %v", f)
	}
	for _, w := range report.Warnings {
		s.notify("warning: %s", w)
	}

	if s.manifest != nil {
		entry, err := s.manifest.LogCommit(s.catalog.Dir(), mode.String(), report.BackupDir, fileRecords(report, sizes))
		if err != nil {
			s.log.Warn("manifest write failed", "error", err)
			out.Warnings = append(out.Warnings, err.Error())
		} else {
			out.ManifestID = entry.ID
		}
	}

	s.notify("applied %d operations", len(report.Executed))
	s.notifier.PendingChanged(s.ledger.Count())
	return out, nil
}

// pendingSizes stats every pending path before the files move.
func (s *Session) pendingSizes() map[string]int64 {
	sizes := make(map[string]int64)
	for _, op := range s.ledger.Operations() {
		if info, err := os.Lstat(op.Path); err == nil {
			sizes[op.Path] = info.Size()
		}
	}
	return sizes
}

func fileRecords(report commit.Report, sizes map[string]int64) []manifest.FileRecord {
	var files []manifest.FileRecord
	for _, op := range report.Executed {
		status := manifest.StatusKept
		if op.Action == types.ActionDelete {
			status = manifest.StatusDeleted
		}
		files = append(files, manifest.FileRecord{Path: op.Path, Size: sizes[op.Path], Status: status})
	}
	for _, f := range report.Failures {
		files = append(files, manifest.FileRecord{
			Path:   f.Path,
			Size:   sizes[f.Path],
			Status: manifest.StatusFailed,
			Error:  f.Err.Error(),
		})
	}
	return files
}

// History returns every audit record.
func (s *Session) History() ([]audit.Record, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.GetAllOperations()
}

// ClearHistory removes every audit record.
func (s *Session) ClearHistory() error {
	if s.store == nil {
		return nil
	}
	return s.store.ClearOperations()
}

// Close closes the audit store.
func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (s *Session) notify(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.log.Info(msg)
	s.notifier.Message(msg)
}
