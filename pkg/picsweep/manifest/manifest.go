package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Get for an unknown ID.
	ErrNotFound = errors.New("manifest entry not found")

	// ErrEmptyDir is returned by New without a directory.
	ErrEmptyDir = errors.New("manifest directory cannot be empty")
)

const idPrefix = "commit-"

// DefaultDir returns $XDG_CONFIG_HOME/picsweep/.manifest.
func DefaultDir() string {
	return filepath.Join(xdg.ConfigHome, "picsweep", ".manifest")
}

// Manifest reads and writes commit entries in one directory.
type Manifest struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New returns a manifest rooted at dir. The directory is created lazily.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, ErrEmptyDir
	}
	return &Manifest{dir: dir, now: time.Now}, nil
}

// Dir returns the manifest directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// EnsureDir creates the manifest directory.
func (m *Manifest) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o755)
}

// LogCommit writes an entry for a finished commit and returns it.
func (m *Manifest) LogCommit(folder, mode, backupDir string, files []FileRecord) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	entry := &Entry{
		ID:        newID(now),
		Timestamp: now,
		Folder:    folder,
		Mode:      mode,
		BackupDir: backupDir,
		Files:     files,
		Summary:   summarize(files),
	}
	if entry.Files == nil {
		entry.Files = []FileRecord{}
	}

	if err := m.write(entry); err != nil {
		return nil, fmt.Errorf("failed to write manifest entry: %w", err)
	}
	return entry, nil
}

func summarize(files []FileRecord) Summary {
	var s Summary
	for _, f := range files {
		switch f.Status {
		case StatusKept:
			s.Kept++
		case StatusDeleted:
			s.Deleted++
			s.TotalBytes += f.Size
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// write stores entry atomically via a temp file.
func (m *Manifest) write(entry *Entry) error {
	if err := m.EnsureDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(m.dir, entry.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// List returns entries newest first. A limit of zero or less returns all.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with id.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.read(id + ".json")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return entry, nil
}

// Cleanup deletes entries older than retentionDays and returns how many
// were removed. A retention of zero or less keeps everything.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return 0, err
	}

	cutoff := m.now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, e.ID+".json")); err == nil {
			removed++
		}
	}
	return removed, nil
}

// readAll parses every entry file, skipping unreadable ones.
func (m *Manifest) readAll() ([]Entry, error) {
	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, idPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		entry, err := m.read(name)
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (m *Manifest) read(name string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return &entry, nil
}

// newID returns an ID like "commit-20260118T103000-1a2b3c4d".
func newID(ts time.Time) string {
	return fmt.Sprintf("%s%s-%s", idPrefix, ts.Format("20060102T150405"), uuid.NewString()[:8])
}
