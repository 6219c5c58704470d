/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package table

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/suparena/authstore/datastore"
	"github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// Table is a dictionary view of one entity table: keys are primary-key
// values, values are write-through row proxies. A Table holds no row state
// and is safe for concurrent use.
type Table[K cmp.Ordered] struct {
	driver datastore.Driver
	schema storagemodels.EntitySchema
	logger *slog.Logger
	locks  *keyLocks
}

type options struct {
	logger *slog.Logger
}

// Option configures a Table.
type Option func(*options)

// WithLogger sets the logger used for table events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New binds a schema to a driver. K must match the primary-key kind:
// string for text keys, int64 for int keys.
func New[K cmp.Ordered](driver datastore.Driver, schema storagemodels.EntitySchema, opts ...Option) (*Table[K], error) {
	if driver == nil {
		return nil, errors.NewValidationError("driver", "driver is required")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if err := checkKeyKind[K](schema.PrimaryKey); err != nil {
		return nil, err
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Table[K]{
		driver: driver,
		schema: schema,
		logger: o.logger.With("table", schema.Name),
		locks:  newKeyLocks(),
	}, nil
}

func checkKeyKind[K cmp.Ordered](pk storagemodels.Column) error {
	var zero K
	var want storagemodels.ColumnKind
	switch any(zero).(type) {
	case string:
		want = storagemodels.KindText
	case int64:
		want = storagemodels.KindInt
	default:
		return errors.NewValidationError(pk.Name, fmt.Sprintf("key type %T is not supported", zero))
	}
	if pk.Kind != want {
		return errors.NewValidationError(pk.Name, fmt.Sprintf("key type %T does not match %s primary key", zero, pk.Kind))
	}
	return nil
}

// Schema returns the bound schema.
func (t *Table[K]) Schema() storagemodels.EntitySchema { return t.schema }

// Name returns the logical entity name.
func (t *Table[K]) Name() string { return t.schema.Name }

// Len counts the rows of the table.
func (t *Table[K]) Len(ctx context.Context) (int64, error) {
	return t.driver.CountAll(ctx, t.schema)
}

// Contains reports whether a row exists for k.
func (t *Table[K]) Contains(ctx context.Context, k K) (bool, error) {
	n, err := t.driver.CountByPrimaryKey(ctx, t.schema, k)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get fetches the row for k as a fresh proxy. Absent keys fail with KeyNotFoundError.
func (t *Table[K]) Get(ctx context.Context, k K) (*RowProxy[K], error) {
	row, err := t.driver.QueryByPrimaryKey(ctx, t.schema, k)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errors.NewKeyNotFoundError(t.schema.Name, k)
	}
	_, proxy, err := t.decode(*row)
	return proxy, err
}

// Set upserts k. An existing row is merged with fields and every column
// written back; a new row is inserted with exactly fields. A nil field
// value unsets the column. Concurrent Sets of the same key in this process
// are serialised; writers in other processes can still interleave.
func (t *Table[K]) Set(ctx context.Context, k K, fields map[string]any) error {
	coerced, err := t.schema.CoerceFields(fields)
	if err != nil {
		return err
	}

	unlock := t.locks.lock(k)
	defer unlock()

	exists, err := t.Contains(ctx, k)
	if err != nil {
		return err
	}
	if !exists {
		return t.driver.InsertRow(ctx, t.schema, t.encodeForInsert(k, coerced))
	}

	row, err := t.driver.QueryByPrimaryKey(ctx, t.schema, k)
	if err != nil {
		return err
	}
	if row == nil {
		t.logger.Debug("row vanished before merge, inserting", "key", k)
		return t.driver.InsertRow(ctx, t.schema, t.encodeForInsert(k, coerced))
	}

	merged := row.Clone().Columns
	for name, v := range coerced {
		merged[name] = v
	}
	err = t.driver.UpdateFields(ctx, t.schema, k, merged)
	if errors.IsKeyNotFound(err) {
		t.logger.Debug("row vanished during merge, inserting", "key", k)
		return t.driver.InsertRow(ctx, t.schema, t.encodeForInsert(k, merged))
	}
	return err
}

// Delete removes the row for k and returns it. Absent keys fail with
// KeyNotFoundError and nothing is written.
func (t *Table[K]) Delete(ctx context.Context, k K) (storagemodels.Row, error) {
	unlock := t.locks.lock(k)
	defer unlock()

	row, err := t.driver.QueryByPrimaryKey(ctx, t.schema, k)
	if err != nil {
		return storagemodels.Row{}, err
	}
	if row == nil {
		return storagemodels.Row{}, errors.NewKeyNotFoundError(t.schema.Name, k)
	}
	if err := t.driver.DeleteRow(ctx, t.schema, k); err != nil {
		return storagemodels.Row{}, err
	}
	return *row, nil
}

// Keys streams every key. Each call starts a new scan.
func (t *Table[K]) Keys(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[K] {
	return mapStream(ctx, t.driver, t.schema, opts, func(row storagemodels.Row) (K, error) {
		k, ok := row.Key.(K)
		if !ok {
			return k, errors.NewValidationError(t.schema.PrimaryKey.Name, fmt.Sprintf("row key has type %T", row.Key))
		}
		return k, nil
	})
}

// Items streams every (key, proxy) pair. Each call starts a new scan.
func (t *Table[K]) Items(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Item[K, *RowProxy[K]]] {
	return mapStream(ctx, t.driver, t.schema, opts, func(row storagemodels.Row) (storagemodels.Item[K, *RowProxy[K]], error) {
		k, proxy, err := t.decode(row)
		return storagemodels.Item[K, *RowProxy[K]]{Key: k, Value: proxy}, err
	})
}

// InsertPositional inserts one row from values ordered as Schema().ColumnNames(),
// primary key first. An existing row with the same key is replaced.
func (t *Table[K]) InsertPositional(ctx context.Context, values ...any) error {
	row, err := t.encodePositional(values)
	if err != nil {
		return err
	}
	return t.driver.InsertRow(ctx, t.schema, row)
}

// Clear removes every row.
func (t *Table[K]) Clear(ctx context.Context) error {
	if err := t.driver.Truncate(ctx, t.schema); err != nil {
		return err
	}
	t.logger.Info("table purged", "physical_table", t.schema.PhysicalTable, "driver", t.driver.Name())
	return nil
}

// mapStream adapts a row scan into a typed stream. A conversion error ends
// the stream and cancels the underlying scan. A context that ends before the
// scan completes yields a final StorageUnavailableError, so a short stream
// never looks complete.
func mapStream[T any](
	ctx context.Context,
	driver datastore.Driver,
	schema storagemodels.EntitySchema,
	opts []storagemodels.StreamOption,
	convert func(storagemodels.Row) (T, error),
) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.ApplyStreamOptions(opts...)
	out := storagemodels.NewResultChannel[T](options)

	scanCtx, cancel := context.WithCancel(ctx)
	rows := driver.ScanAll(scanCtx, schema, opts...)

	go func() {
		defer close(out)
		defer cancel()

		var meta storagemodels.StreamMeta
		for r := range rows {
			meta = r.Meta
			result := storagemodels.StreamResult[T]{Error: r.Error, Meta: r.Meta}
			if r.Error == nil {
				result.Item, result.Error = convert(r.Item)
			}
			if result.Error != nil {
				storagemodels.Finish(out, result)
				return
			}
			if !storagemodels.Send(ctx, out, result) {
				storagemodels.Finish(out, storagemodels.Canceled[T](ctx, "scan", schema.PhysicalTable, meta))
				return
			}
		}
		// rows closed without a final error
		if ctx.Err() != nil {
			storagemodels.Finish(out, storagemodels.Canceled[T](ctx, "scan", schema.PhysicalTable, meta))
		}
	}()

	return out
}
