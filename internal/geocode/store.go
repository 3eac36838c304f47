// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/gathermap/internal/models"
)

// Store is the persistent tier behind the memory cache.
type Store interface {
	// Get returns the address stored under key, or nil when absent or expired.
	Get(ctx context.Context, key string) (*models.Address, error)
	Put(ctx context.Context, key string, addr *models.Address, ttl time.Duration) error
	Close() error
}

// storeKeyPrefix namespaces geocode entries in the badger keyspace.
const storeKeyPrefix = "geo:"

// BadgerStore implements Store using BadgerDB. Entries expire through
// badger's own TTL.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a BadgerDB at path. An empty path opens an in-memory
// database, which keeps the store semantics without touching disk.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for geocode cache: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get retrieves an address by key.
func (s *BadgerStore) Get(_ context.Context, key string) (*models.Address, error) {
	var addr models.Address

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(storeKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &addr)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get geocode %s: %w", key, err)
	}
	return &addr, nil
}

// Put stores an address with a TTL.
func (s *BadgerStore) Put(_ context.Context, key string, addr *models.Address, ttl time.Duration) error {
	data, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("marshal address: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(storeKeyPrefix+key), data).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// Close closes the underlying BadgerDB.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
