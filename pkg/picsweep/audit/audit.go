// Package audit keeps an append-only record of executed operations.
//
// Two backends are provided: SQLite (in memory by default, or a database
// file) and Badger. Both stamp every record with the session ID of the
// running process so several runs can share one persistent store.
package audit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown audit backend")

// Recorder accepts executed operations.
type Recorder interface {
	AddOperation(path string, action types.Action) error
}

// Store is a Recorder that can also be read back and cleared.
type Store interface {
	Recorder

	// GetAllOperations returns every record in insertion order.
	GetAllOperations() ([]Record, error)

	// ClearOperations removes every record.
	ClearOperations() error

	Close() error
}

// Record is one executed operation.
type Record struct {
	ID        int64        `json:"id" yaml:"id"`
	Path      string       `json:"path" yaml:"path"`
	Action    types.Action `json:"action" yaml:"action"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
	Session   string       `json:"session" yaml:"session"`
}

// sessionID identifies this process in every record it writes.
var sessionID = uuid.NewString()

// SessionID returns the ID stamped on records written by this process.
func SessionID() string {
	return sessionID
}

// Config selects and locates an audit backend.
type Config struct {
	// Backend is "sqlite", "badger", or "memory".
	Backend string `mapstructure:"backend"`

	// Path is the SQLite database file or Badger directory.
	// Empty keeps the store in memory.
	Path string `mapstructure:"path"`
}

// DefaultConfig returns an in-memory SQLite store, which lasts for one run.
func DefaultConfig() Config {
	return Config{Backend: BackendSQLite}
}

// Open creates the store described by cfg.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSQLite:
		if cfg.Path == "" {
			return NewSQLite(MemoryDSN)
		}
		return NewSQLite(cfg.Path)
	case BackendMemory:
		return NewSQLite(MemoryDSN)
	case BackendBadger:
		if cfg.Path == "" {
			return OpenBadgerInMemory()
		}
		return OpenBadger(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
