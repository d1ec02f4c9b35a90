// Package trash moves deleted images to the desktop trash when one is
// reachable, and removes them permanently otherwise.
package trash

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// Method names how a file left its folder.
type Method string

// Methods reported by Put.
const (
	MethodFinder   Method = "finder"
	MethodGio      Method = "gio"
	MethodTrashCLI Method = "trash-put"
	MethodRemoved  Method = "removed"
)

const commandTimeout = 30 * time.Second

// Mover puts files in the trash using the tools it finds on PATH.
type Mover struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// New returns a Mover for the running platform.
func New() *Mover {
	return &Mover{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// MoveToTrash trashes path with the default Mover.
func MoveToTrash(path string) error {
	_, err := New().Put(path)
	return err
}

// Put moves the file at path to the trash and reports how. When no trash
// tool succeeds the file is removed and MethodRemoved is returned.
func (m *Mover) Put(path string) (Method, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %q: %w", path, err)
	}
	if _, err := os.Lstat(abs); err != nil {
		return "", fmt.Errorf("cannot trash %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	for _, c := range m.candidates(abs) {
		bin, err := m.lookPath(c.bin)
		if err != nil {
			continue
		}
		if err := m.run(ctx, bin, c.args...); err == nil {
			if _, statErr := os.Lstat(abs); os.IsNotExist(statErr) {
				return c.method, nil
			}
		}
	}

	if err := os.Remove(abs); err != nil {
		return "", fmt.Errorf("failed to delete %q: %w", path, err)
	}
	return MethodRemoved, nil
}

type candidate struct {
	method Method
	bin    string
	args   []string
}

func (m *Mover) candidates(abs string) []candidate {
	switch m.goos {
	case "darwin":
		script := fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, abs)
		return []candidate{{MethodFinder, "osascript", []string{"-e", script}}}
	case "linux", "freebsd", "openbsd", "netbsd":
		return []candidate{
			{MethodGio, "gio", []string{"trash", abs}},
			{MethodTrashCLI, "trash-put", []string{abs}},
		}
	default:
		return nil
	}
}
