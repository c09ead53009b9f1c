package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/config"
)

// Store wraps BadgerDB and exposes the persisted app documents.
// Every document is a single JSON value under a fixed key, so reads
// and writes stay atomic per document.
type Store struct {
	badger *badger.DB
}

// ErrKeyNotFound is returned when a key has no stored value.
var ErrKeyNotFound = badger.ErrKeyNotFound

// New opens the store under the configured data directory.
func New(cfg *config.Config) (*Store, error) {
	badgerPath := cfg.Storage.BadgerPath
	if badgerPath == "" {
		badgerPath = filepath.Join(cfg.Storage.DataDir, "badger")
	}
	return Open(badgerPath)
}

// Open opens the store at an explicit path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil). // Disable verbose logging
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20). // 16MB value log files
		WithMemTableSize(16 << 20)      // 16MB memtable

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{badger: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.badger.Close()
}

// Badger returns the BadgerDB instance.
func (s *Store) Badger() *badger.DB {
	return s.badger
}

// SetKV stores a key-value pair
func (s *Store) SetKV(key string, value []byte) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("kv:"+key), value)
	})
}

// GetKV retrieves a value by key
func (s *Store) GetKV(key string) ([]byte, error) {
	var val []byte
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("kv:" + key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = append([]byte{}, v...)
			return nil
		})
	})
	return val, err
}

// DeleteKV removes a key.
func (s *Store) DeleteKV(key string) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte("kv:" + key))
	})
}

// HasKV reports whether a key exists.
func (s *Store) HasKV(key string) (bool, error) {
	err := s.badger.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("kv:" + key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
