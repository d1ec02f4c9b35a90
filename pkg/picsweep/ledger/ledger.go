// Package ledger records pending keep/delete decisions before they are
// committed to disk.
//
// A decision on one file applies to its whole duplicate group: recording a
// new decision first removes every live entry for the group (overwrite), and
// undo removes the entries of the most recent group in one step. No two live
// entries ever share a path.
package ledger

import (
	"errors"

	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

var (
	// ErrNothingToUndo is returned by Undo when no decision is pending.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrAlreadyApplied is returned by Undo after a commit, until a new
	// decision is recorded.
	ErrAlreadyApplied = errors.New("operations already applied")
)

// Relator maps a path to every path in its duplicate group.
type Relator interface {
	FindRelated(path string) []string
}

// Result describes the effect of one recorded decision.
type Result struct {
	// Applied are the entries appended, in append order.
	Applied []types.PendingOperation

	// Overwritten are the entries removed to make room, in ledger order.
	Overwritten []types.PendingOperation
}

// UndoResult describes the entries removed by Undo.
type UndoResult struct {
	AnchorPath   string
	AnchorAction types.Action

	// Undone are the removed entries, newest first.
	Undone []types.PendingOperation
}

// Summary counts pending entries by action.
type Summary struct {
	Keep   int `json:"keep" yaml:"keep"`
	Delete int `json:"delete" yaml:"delete"`
}

// Total returns the number of entries summarized.
func (s Summary) Total() int {
	return s.Keep + s.Delete
}

// Ledger is an ordered log of pending decisions.
// It is not safe for concurrent use.
type Ledger struct {
	ops     []types.PendingOperation
	applied bool
	relator Relator
}

// New creates an empty ledger that resolves groups through relator.
func New(relator Relator) *Ledger {
	return &Ledger{relator: relator}
}

// RecordKeep keeps path and stages every other path in related for deletion.
// If related does not contain path, path is recorded as kept first.
func (l *Ledger) RecordKeep(path string, related []string) Result {
	targets := withPath(path, related)
	overwritten := l.prepare(targets)

	applied := make([]types.PendingOperation, 0, len(targets))
	for _, p := range targets {
		action := types.ActionDelete
		if p == path {
			action = types.ActionKeep
		}
		applied = append(applied, types.PendingOperation{Path: p, Action: action})
	}
	l.ops = append(l.ops, applied...)

	return Result{Applied: applied, Overwritten: overwritten}
}

// RecordDelete stages path and every path in related for deletion.
func (l *Ledger) RecordDelete(path string, related []string) Result {
	targets := withPath(path, related)
	overwritten := l.prepare(targets)

	applied := make([]types.PendingOperation, 0, len(targets))
	for _, p := range targets {
		applied = append(applied, types.PendingOperation{Path: p, Action: types.ActionDelete})
	}
	l.ops = append(l.ops, applied...)

	return Result{Applied: applied, Overwritten: overwritten}
}

// prepare resets an applied ledger and removes every live entry for targets.
func (l *Ledger) prepare(targets []string) []types.PendingOperation {
	if l.applied {
		l.ops = nil
		l.applied = false
	}

	set := toSet(targets)
	var removed []types.PendingOperation
	for i := len(l.ops) - 1; i >= 0; i-- {
		if _, ok := set[l.ops[i].Path]; ok {
			removed = append(removed, l.ops[i])
			l.ops = append(l.ops[:i], l.ops[i+1:]...)
		}
	}

	// Removal ran high to low; report in ledger order.
	for i, j := 0, len(removed)-1; i < j; i, j = i+1, j-1 {
		removed[i], removed[j] = removed[j], removed[i]
	}
	return removed
}

// Undo removes the most recent decision together with every entry for the
// rest of its duplicate group.
func (l *Ledger) Undo() (UndoResult, error) {
	if l.applied {
		return UndoResult{}, ErrAlreadyApplied
	}
	if len(l.ops) == 0 {
		return UndoResult{}, ErrNothingToUndo
	}

	anchor := l.ops[len(l.ops)-1]

	var related []string
	if l.relator != nil {
		related = l.relator.FindRelated(anchor.Path)
	}
	set := toSet(withPath(anchor.Path, related))

	var indices []int
	for i := len(l.ops) - 1; i >= 0 && len(indices) < len(set); i-- {
		if _, ok := set[l.ops[i].Path]; ok {
			indices = append(indices, i)
		}
	}

	// indices are descending, so earlier removals never shift later ones.
	undone := make([]types.PendingOperation, 0, len(indices))
	for _, i := range indices {
		undone = append(undone, l.ops[i])
		l.ops = append(l.ops[:i], l.ops[i+1:]...)
	}

	return UndoResult{
		AnchorPath:   anchor.Path,
		AnchorAction: anchor.Action,
		Undone:       undone,
	}, nil
}

// Count returns the number of pending entries.
func (l *Ledger) Count() int {
	return len(l.ops)
}

// Operations returns a copy of the pending entries in append order.
func (l *Ledger) Operations() []types.PendingOperation {
	out := make([]types.PendingOperation, len(l.ops))
	copy(out, l.ops)
	return out
}

// Summary counts the pending entries by action.
func (l *Ledger) Summary() Summary {
	var s Summary
	for _, op := range l.ops {
		switch op.Action {
		case types.ActionKeep:
			s.Keep++
		case types.ActionDelete:
			s.Delete++
		}
	}
	return s
}

// Applied reports whether the last commit has not been followed by a new
// decision.
func (l *Ledger) Applied() bool {
	return l.applied
}

// MarkApplied empties the ledger after a commit.
func (l *Ledger) MarkApplied() {
	l.ops = nil
	l.applied = true
}

// Clear empties the ledger and resets the applied flag.
func (l *Ledger) Clear() {
	l.ops = nil
	l.applied = false
}

// withPath returns related with duplicates dropped, prefixed by path when
// related does not already contain it.
func withPath(path string, related []string) []string {
	out := make([]string, 0, len(related)+1)
	seen := make(map[string]struct{}, len(related)+1)

	found := false
	for _, p := range related {
		if p == path {
			found = true
			break
		}
	}
	if !found {
		out = append(out, path)
		seen[path] = struct{}{}
	}

	for _, p := range related {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func toSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}
