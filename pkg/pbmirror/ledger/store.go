package ledger

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no record exists for a library.
var ErrNotFound = errors.New("ledger record not found")

// Store wraps Badger for ledger records.
type Store struct {
	db *badger.DB
}

// OpenStore opens or creates a ledger store at the given directory.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the record for a library.
func (s *Store) Get(version, path string) (*Record, error) {
	key := MakeKey(version, path)
	var rec Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(rec.Decode)
	})

	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put stores a record.
func (s *Store) Put(version, path string, rec *Record) error {
	key := MakeKey(version, path)
	value, err := rec.Encode()
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes a record.
func (s *Store) Delete(version, path string) error {
	key := MakeKey(version, path)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Keys returns every key under the version prefix.
func (s *Store) Keys(version string) ([][]byte, error) {
	prefix := MakeKeyPrefix(version)
	var keys [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// DeletePrefix removes all records of a version, or every record when
// version is empty.
func (s *Store) DeletePrefix(version string) error {
	keys, err := s.Keys(version)
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}

	return wb.Flush()
}
