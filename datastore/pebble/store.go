/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pebble

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	autherrors "github.com/suparena/authstore/errors"
)

// ErrClosed is wrapped into a StorageUnavailableError once the store is closed.
var ErrClosed = errors.New("pebble: store is closed")

// Driver implements datastore.Driver on an embedded pebble database.
// Each keyspace/table pair owns a disjoint key prefix.
type Driver struct {
	db       *pebble.DB
	keyspace string
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
}

type options struct {
	fs        vfs.FS
	cacheSize int64
	logger    *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithFS runs the store on the given filesystem; vfs.NewMem() gives an in-memory store.
func WithFS(fs vfs.FS) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithCacheSize sets the block cache size in bytes.
func WithCacheSize(size int64) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// WithLogger sets the logger used for driver events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Open opens (or creates) the store at path and binds it to keyspace.
func Open(path, keyspace string, opts ...Option) (*Driver, error) {
	o := options{
		cacheSize: 64 * 1024 * 1024, // 64MB
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if keyspace == "" {
		return nil, autherrors.NewValidationError("keyspace", "keyspace is required")
	}

	cache := pebble.NewCache(o.cacheSize)
	defer cache.Unref()

	popts := &pebble.Options{
		Cache:        cache,
		MemTableSize: 32 * 1024 * 1024, // 32MB
	}
	if o.fs != nil {
		popts.FS = o.fs
	}

	db, err := pebble.Open(path, popts)
	if err != nil {
		return nil, autherrors.NewStorageUnavailableError("open", path, err)
	}

	o.logger.Debug("pebble store opened", "path", path, "keyspace", keyspace)
	return &Driver{
		db:       db,
		keyspace: keyspace,
		logger:   o.logger,
	}, nil
}

// Name implements datastore.Driver.
func (d *Driver) Name() string { return "pebble" }

// Close flushes and closes the store. Closing twice is not an error.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// get returns a copy of the value, or nil when the key is absent. Callers hold d.mu.
func (d *Driver) get(key []byte) ([]byte, error) {
	if d.closed {
		return nil, ErrClosed
	}
	value, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (d *Driver) readErr(op, table string, err error) error {
	return autherrors.NewStorageUnavailableError(op, table, err)
}

func (d *Driver) writeErr(op, table string, key any, err error) error {
	if errors.Is(err, ErrClosed) {
		return autherrors.NewStorageUnavailableError(op, table, err)
	}
	return autherrors.NewStorageWriteError(op, table, key, fmt.Errorf("pebble: %w", err))
}
