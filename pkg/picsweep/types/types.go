// Package types provides core data types for the picsweep image deduplicator.
// It includes the scanned image record, staged operation records, commit modes,
// and utility functions for parsing and formatting file sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// ImageItem is a single image file discovered by a folder scan.
// Path is its identity; the record never changes after the scan.
type ImageItem struct {
	// Path is the full path to the file.
	Path string `json:"path" yaml:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// Filename is the base name of the file.
	Filename string `json:"filename" yaml:"filename"`
}

// HumanSize returns the file size formatted as a human-readable string.
func (i ImageItem) HumanSize() string {
	return FormatSize(i.Size)
}

// SkippedFile records an image that could not be sized during a scan.
type SkippedFile struct {
	// Filename is the base name of the skipped file.
	Filename string `json:"filename" yaml:"filename"`

	// Error is the error message describing what went wrong.
	Error string `json:"error" yaml:"error"`
}

// Action is the decision staged for a file.
type Action string

const (
	// ActionKeep leaves the file in place.
	ActionKeep Action = "keep"
	// ActionDelete removes the file on commit.
	ActionDelete Action = "delete"
)

// PendingOperation is one staged decision in the ledger.
type PendingOperation struct {
	Path   string `json:"path" yaml:"path"`
	Action Action `json:"action" yaml:"action"`
}

// Mode selects how delete decisions are applied on commit.
type Mode int

const (
	// ModeBackup moves deleted files into a sibling recycle folder.
	ModeBackup Mode = iota
	// ModeDirect removes deleted files permanently.
	ModeDirect
	// ModeTrash moves deleted files to the system trash.
	ModeTrash
)

// Mode string constants.
const (
	modeBackup = "backup"
	modeDirect = "direct"
	modeTrash  = "trash"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBackup:
		return modeBackup
	case ModeDirect:
		return modeDirect
	case ModeTrash:
		return modeTrash
	default:
		return "unknown"
	}
}

// ErrInvalidMode indicates that the mode string could not be parsed.
var ErrInvalidMode = errors.New("invalid commit mode")

// ParseMode parses a mode name ("backup", "direct", "trash"), ignoring case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case modeBackup:
		return ModeBackup, nil
	case modeDirect:
		return ModeDirect, nil
	case modeTrash:
		return ModeTrash, nil
	default:
		return ModeBackup, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// It accepts plain byte counts and K, M, G, T suffixes with an optional
// "B" or "iB" (for example "512", "10MB", "1.5GiB"). All units are binary.
//
// Returns ErrInvalidSize if the format is not recognized.
// Returns ErrNegativeSize if the value is negative.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string
// using binary (IEC) units, e.g. FormatSize(1536*1024) returns "1.5 MiB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
