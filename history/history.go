// Package history stores finished dictation sessions in an embedded
// key-value store.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"go.aimuz.me/dictate/internal/types"
)

// DefaultRetention is how long sessions are kept.
const DefaultRetention = 30 * 24 * time.Hour

// ErrNotFound is returned by Get for an unknown session.
var ErrNotFound = errors.New("session not found")

const (
	prefixSession = "session/"
	prefixIndex   = "id/"
)

// Store is a persistent session history.
type Store struct {
	db        *badger.DB
	retention time.Duration
}

// Open opens or creates a store in dir. A zero retention keeps entries for
// DefaultRetention.
func Open(dir string, retention time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	return open(opts, retention)
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory(retention time.Duration) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return open(opts, retention)
}

func open(opts badger.Options, retention time.Duration) (*Store, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db, retention: retention}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// sessionKey orders sessions by start time.
func sessionKey(startedAt int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", prefixSession, startedAt, id))
}

// Put records a finished session.
func (s *Store) Put(sum types.SessionSummary) error {
	if sum.ID == "" {
		return errors.New("session id required")
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := sessionKey(sum.StartedAt, sum.ID)

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(badger.NewEntry(key, data).WithTTL(s.retention)); err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry([]byte(prefixIndex+sum.ID), key).WithTTL(s.retention))
	})
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Get returns one session by id.
func (s *Store) Get(id string) (types.SessionSummary, error) {
	var sum types.SessionSummary
	err := s.db.View(func(txn *badger.Txn) error {
		idx, err := txn.Get([]byte(prefixIndex + id))
		if err != nil {
			return err
		}
		key, err := idx.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sum)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return sum, ErrNotFound
	}
	if err != nil {
		return sum, fmt.Errorf("read session: %w", err)
	}
	return sum, nil
}

// Recent returns up to limit sessions, newest first.
func (s *Store) Recent(limit int) ([]types.SessionSummary, error) {
	if limit <= 0 {
		return nil, nil
	}
	var out []types.SessionSummary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixSession)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the largest key not after the seek key.
		seek := append([]byte(prefixSession), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(out) < limit; it.Next() {
			var sum types.SessionSummary
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sum)
			}); err != nil {
				return err
			}
			out = append(out, sum)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}
