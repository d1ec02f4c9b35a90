package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// SQLiteStore records operations in an SQLite table.
type SQLiteStore struct {
	conn    *sql.DB
	session string
	log     *logging.Logger
}

// NewSQLite opens (or creates) the database at dsn and ensures the
// operations table exists.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	source := dsn
	if dsn != MemoryDSN {
		source = dsn + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	conn, err := sql.Open("sqlite3", source)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// An in-memory database lives and dies with its one connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		conn:    conn,
		session: SessionID(),
		log:     logging.Get("audit"),
	}

	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate audit database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL,
		action TEXT NOT NULL,
		session TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_operations_session ON operations(session);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// AddOperation appends one record.
func (s *SQLiteStore) AddOperation(path string, action types.Action) error {
	_, err := s.conn.Exec(
		`INSERT INTO operations (file_path, action, session, timestamp) VALUES (?, ?, ?, ?)`,
		path, string(action), s.session, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %s %s: %w", action, path, err)
	}
	s.log.Debug("operation recorded", "path", path, "action", action)
	return nil
}

// GetAllOperations returns every record ordered by ID.
func (s *SQLiteStore) GetAllOperations() ([]Record, error) {
	rows, err := s.conn.Query(
		`SELECT id, file_path, action, session, timestamp FROM operations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r      Record
			action string
			ts     string
		)
		if err := rows.Scan(&r.ID, &r.Path, &action, &r.Session, &ts); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		r.Action = types.Action(action)
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.Timestamp = parsed
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading operations: %w", err)
	}

	return records, nil
}

// ClearOperations deletes every record.
func (s *SQLiteStore) ClearOperations() error {
	if _, err := s.conn.Exec(`DELETE FROM operations`); err != nil {
		return fmt.Errorf("clearing operations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
