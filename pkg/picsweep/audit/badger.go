package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// Key layout:
//
//	o:<20-digit sequence>  -> JSON Record
//	seq:operations         -> badger sequence lease
var (
	opPrefix = []byte("o:")
	seqKey   = []byte("seq:operations")
)

// seqBandwidth is how many IDs a sequence lease reserves at once.
const seqBandwidth = 100

// BadgerStore records operations in a Badger key-value store.
type BadgerStore struct {
	db      *badger.DB
	seq     *badger.Sequence
	session string
	log     *logging.Logger
}

// OpenBadger opens or creates a store in dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions(dir))
}

// OpenBadgerInMemory creates a store that is discarded on Close.
func OpenBadgerInMemory() (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true))
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening audit store: %w", err)
	}

	seq, err := db.GetSequence(seqKey, seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("acquiring audit sequence: %w", err)
	}

	return &BadgerStore{
		db:      db,
		seq:     seq,
		session: SessionID(),
		log:     logging.Get("audit"),
	}, nil
}

// opKey returns the key for sequence number id. Zero padding keeps
// lexical key order equal to insertion order.
func opKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", opPrefix, id))
}

// AddOperation appends one record.
func (s *BadgerStore) AddOperation(path string, action types.Action) error {
	next, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("allocating operation id: %w", err)
	}
	id := next + 1

	value, err := json.Marshal(Record{
		ID:        int64(id),
		Path:      path,
		Action:    action,
		Timestamp: time.Now().UTC(),
		Session:   s.session,
	})
	if err != nil {
		return fmt.Errorf("encoding operation: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(opKey(id), value)
	})
	if err != nil {
		return fmt.Errorf("recording %s %s: %w", action, path, err)
	}

	s.log.Debug("operation recorded", "path", path, "action", action, "id", id)
	return nil
}

// GetAllOperations returns every record in insertion order.
func (s *BadgerStore) GetAllOperations() ([]Record, error) {
	var records []Record

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(opPrefix); it.ValidForPrefix(opPrefix); it.Next() {
			var r Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				return err
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading operations: %w", err)
	}

	return records, nil
}

// ClearOperations deletes every record. The sequence keeps counting.
// Deletes go through a write batch, which commits in as many transactions
// as the history needs.
func (s *BadgerStore) ClearOperations() error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opPrefix); it.ValidForPrefix(opPrefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing operations: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("clearing operations: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("clearing operations: %w", err)
	}

	s.log.Debug("operations cleared", "count", len(keys))
	return nil
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("releasing audit sequence: %w", err)
	}
	return s.db.Close()
}
