// Package store persists documents, reading positions, and server settings
// in a Badger key-value database.
//
// Key layout:
//
//	doc:{documentID}  -> domain.Document
//	pos:{documentID}  -> domain.ReadingPosition
//	settings:server   -> domain.Settings
package store

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	apperrors "github.com/readalongapp/readalong-server/internal/errors"
)

const (
	prefixDocument = "doc:"
	prefixPosition = "pos:"
	keySettings    = "settings:server"
)

// EventEmitter is the interface for emitting SSE events. The store uses it
// to broadcast changes without depending on SSE implementation details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// Store wraps a Badger database instance.
type Store struct {
	db      *badger.DB
	logger  *slog.Logger
	emitter EventEmitter
}

// New creates a Store with the given database path and event emitter.
func New(path string, logger *slog.Logger, emitter EventEmitter) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Sync writes to survive crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened", "path", path)
	}

	return &Store{db: db, logger: logger, emitter: emitter}, nil
}

// NewInMemory creates a Store backed by an in-memory Badger instance, for
// tests.
func NewInMemory(emitter EventEmitter) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger db: %w", err)
	}
	return &Store{db: db, emitter: emitter}, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// emit broadcasts an event if an emitter is configured.
func (s *Store) emit(event any) {
	if s.emitter != nil {
		s.emitter.Emit(event)
	}
}

// get retrieves a value by key. Missing keys map to the domain NotFound
// error so callers never see badger internals.
func (s *Store) get(key []byte, dest any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	if apperrors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.ErrNotFound
	}
	return err
}

// set stores a value by key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// delete removes a key from the database.
func (s *Store) delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// listPrefix collects every value under prefix into out via fn.
func (s *Store) listPrefix(prefix []byte, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
