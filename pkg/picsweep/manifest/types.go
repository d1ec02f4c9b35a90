// Package manifest keeps a JSON history of commits, one file per commit.
package manifest

import "time"

// Status is the outcome for one file in a commit.
type Status string

const (
	StatusKept    Status = "kept"
	StatusDeleted Status = "deleted"
	StatusFailed  Status = "failed"
)

// Entry is one commit.
type Entry struct {
	ID        string       `json:"id" yaml:"id"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
	Folder    string       `json:"folder" yaml:"folder"`
	Mode      string       `json:"mode" yaml:"mode"`
	BackupDir string       `json:"backup_dir,omitempty" yaml:"backup_dir,omitempty"`
	Files     []FileRecord `json:"files" yaml:"files"`
	Summary   Summary      `json:"summary" yaml:"summary"`
}

// FileRecord is one file touched by a commit.
type FileRecord struct {
	Path   string `json:"path" yaml:"path"`
	Size   int64  `json:"size" yaml:"size"`
	Status Status `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary totals a commit.
type Summary struct {
	Kept    int `json:"kept" yaml:"kept"`
	Deleted int `json:"deleted" yaml:"deleted"`
	Failed  int `json:"failed" yaml:"failed"`

	// TotalBytes is the size of the deleted files.
	TotalBytes int64 `json:"total_bytes" yaml:"total_bytes"`
}
