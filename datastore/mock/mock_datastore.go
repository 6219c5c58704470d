/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Driver for testing
package mock

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// Driver is an in-memory implementation of datastore.Driver for testing
type Driver struct {
	mu        sync.RWMutex
	keyspaces map[string]storagemodels.ReplicationPolicy
	tables    map[string]*memTable
	writes    atomic.Int64

	queryError  error
	insertError error
	updateError error
	deleteError error
	scanError   error
	schemaError error
}

type memTable struct {
	schema storagemodels.EntitySchema
	rows   map[any]storagemodels.Row
}

// New creates a new mock Driver
func New() *Driver {
	return &Driver{
		keyspaces: make(map[string]storagemodels.ReplicationPolicy),
		tables:    make(map[string]*memTable),
	}
}

// WithQueryError makes lookups and counts return an error
func (m *Driver) WithQueryError(err error) *Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryError = err
	return m
}

// WithInsertError makes InsertRow return an error
func (m *Driver) WithInsertError(err error) *Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertError = err
	return m
}

// WithUpdateError makes UpdateFields return an error
func (m *Driver) WithUpdateError(err error) *Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateError = err
	return m
}

// WithDeleteError makes DeleteRow and Truncate return an error
func (m *Driver) WithDeleteError(err error) *Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteError = err
	return m
}

// WithScanError makes ScanAll yield an error after the first row
func (m *Driver) WithScanError(err error) *Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanError = err
	return m
}

// WithSchemaError makes CreateKeyspace and EnsureTableSchema return an error
func (m *Driver) WithSchemaError(err error) *Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemaError = err
	return m
}

// Name implements datastore.Driver
func (m *Driver) Name() string { return "memory" }

// CreateKeyspace records the keyspace and its policy
func (m *Driver) CreateKeyspace(ctx context.Context, name string, policy storagemodels.ReplicationPolicy) error {
	if err := ctx.Err(); err != nil {
		return errors.NewStorageUnavailableError("create keyspace", name, err)
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schemaError != nil {
		return m.schemaError
	}
	m.keyspaces[name] = policy
	return nil
}

// EnsureTableSchema creates the table, or replaces its value columns
func (m *Driver) EnsureTableSchema(ctx context.Context, schema storagemodels.EntitySchema) error {
	if err := ctx.Err(); err != nil {
		return errors.NewStorageUnavailableError("ensure table", schema.PhysicalTable, err)
	}
	if err := schema.Validate(); err != nil {
		return errors.NewSchemaInitializationError(schema.PhysicalTable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schemaError != nil {
		return m.schemaError
	}
	if t, ok := m.tables[schema.PhysicalTable]; ok {
		if t.schema.PrimaryKey != schema.PrimaryKey {
			return errors.NewSchemaInitializationError(schema.PhysicalTable,
				fmt.Errorf("primary key %s cannot change to %s", t.schema.PrimaryKey.Name, schema.PrimaryKey.Name))
		}
		t.schema = schema
		return nil
	}
	m.tables[schema.PhysicalTable] = &memTable{
		schema: schema,
		rows:   make(map[any]storagemodels.Row),
	}
	return nil
}

// DropTable removes the table; dropping an absent table is not an error
func (m *Driver) DropTable(ctx context.Context, schema storagemodels.EntitySchema) error {
	if err := ctx.Err(); err != nil {
		return errors.NewStorageUnavailableError("drop table", schema.PhysicalTable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, schema.PhysicalTable)
	return nil
}

// QueryByPrimaryKey returns a copy of the row, or nil when absent
func (m *Driver) QueryByPrimaryKey(ctx context.Context, schema storagemodels.EntitySchema, key any) (*storagemodels.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.table(ctx, "query", schema, m.queryError)
	if err != nil {
		return nil, err
	}
	row, ok := t.rows[key]
	if !ok {
		return nil, nil
	}
	cp := row.Clone()
	return &cp, nil
}

// CountAll returns the number of rows
func (m *Driver) CountAll(ctx context.Context, schema storagemodels.EntitySchema) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.table(ctx, "count", schema, m.queryError)
	if err != nil {
		return 0, err
	}
	return int64(len(t.rows)), nil
}

// CountByPrimaryKey returns 1 when the key exists, 0 otherwise
func (m *Driver) CountByPrimaryKey(ctx context.Context, schema storagemodels.EntitySchema, key any) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.table(ctx, "count", schema, m.queryError)
	if err != nil {
		return 0, err
	}
	if _, ok := t.rows[key]; ok {
		return 1, nil
	}
	return 0, nil
}

// InsertRow stores the row, overwriting any row with the same key
func (m *Driver) InsertRow(ctx context.Context, schema storagemodels.EntitySchema, row storagemodels.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(ctx, "insert", schema, m.insertError)
	if err != nil {
		return err
	}
	stored := storagemodels.Row{Key: row.Key, Columns: make(map[string]any, len(row.Columns))}
	for k, v := range row.Columns {
		if v != nil {
			stored.Columns[k] = v
		}
	}
	t.rows[row.Key] = stored
	m.writes.Add(1)
	return nil
}

// UpdateFields applies the fields to an existing row
func (m *Driver) UpdateFields(ctx context.Context, schema storagemodels.EntitySchema, key any, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(ctx, "update", schema, m.updateError)
	if err != nil {
		return err
	}
	row, ok := t.rows[key]
	if !ok {
		return errors.NewKeyNotFoundError(schema.Name, key)
	}
	row = row.Clone()
	for k, v := range fields {
		if v == nil {
			delete(row.Columns, k)
			continue
		}
		row.Columns[k] = v
	}
	t.rows[key] = row
	m.writes.Add(1)
	return nil
}

// DeleteRow removes the row with the given key
func (m *Driver) DeleteRow(ctx context.Context, schema storagemodels.EntitySchema, key any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(ctx, "delete", schema, m.deleteError)
	if err != nil {
		return err
	}
	if _, ok := t.rows[key]; !ok {
		return errors.NewKeyNotFoundError(schema.Name, key)
	}
	delete(t.rows, key)
	m.writes.Add(1)
	return nil
}

// ScanAll streams a snapshot of the table ordered by key. A context that
// ends before the snapshot is delivered yields a final StorageUnavailableError.
func (m *Driver) ScanAll(ctx context.Context, schema storagemodels.EntitySchema, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Row] {
	options := storagemodels.ApplyStreamOptions(opts...)
	resultChan := storagemodels.NewResultChannel[storagemodels.Row](options)

	m.mu.RLock()
	t, err := m.table(ctx, "scan", schema, nil)
	var snapshot []storagemodels.Row
	if err == nil {
		snapshot = make([]storagemodels.Row, 0, len(t.rows))
		for _, r := range t.rows {
			snapshot = append(snapshot, r.Clone())
		}
	}
	scanErr := m.scanError
	m.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return compareKeys(snapshot[i].Key, snapshot[j].Key) < 0
	})

	go func() {
		defer close(resultChan)

		if err != nil {
			storagemodels.Finish(resultChan, storagemodels.StreamResult[storagemodels.Row]{Error: err})
			return
		}
		start := time.Now()
		for i, r := range snapshot {
			meta := storagemodels.StreamMeta{Index: int64(i), PageNumber: 1, Timestamp: time.Now()}
			// an injected scan error fails the stream after its first row
			if scanErr != nil && i > 0 {
				break
			}
			if !storagemodels.Send(ctx, resultChan, storagemodels.StreamResult[storagemodels.Row]{Item: r, Meta: meta}) {
				storagemodels.Finish(resultChan, storagemodels.Canceled[storagemodels.Row](ctx, "scan", schema.PhysicalTable, meta))
				return
			}
		}
		if scanErr != nil {
			storagemodels.Finish(resultChan, storagemodels.StreamResult[storagemodels.Row]{Error: scanErr})
			return
		}
		if options.ProgressHandler != nil {
			options.ProgressHandler(storagemodels.NewProgress(int64(len(snapshot)), 1, start))
		}
	}()

	return resultChan
}

// Truncate removes every row of the table
func (m *Driver) Truncate(ctx context.Context, schema storagemodels.EntitySchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(ctx, "truncate", schema, m.deleteError)
	if err != nil {
		return err
	}
	t.rows = make(map[any]storagemodels.Row)
	m.writes.Add(1)
	return nil
}

// Close implements datastore.Driver
func (m *Driver) Close() error { return nil }

// Helper methods for testing

// Writes returns the number of successful mutations performed
func (m *Driver) Writes() int64 {
	return m.writes.Load()
}

// Keyspaces returns a copy of the created keyspaces and their policies
func (m *Driver) Keyspaces() map[string]storagemodels.ReplicationPolicy {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]storagemodels.ReplicationPolicy, len(m.keyspaces))
	for k, v := range m.keyspaces {
		result[k] = v
	}
	return result
}

// Tables returns the names of the existing physical tables, sorted
func (m *Driver) Tables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.tables))
	for n := range m.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// table resolves the physical table; callers hold m.mu.
func (m *Driver) table(ctx context.Context, op string, schema storagemodels.EntitySchema, injected error) (*memTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewStorageUnavailableError(op, schema.PhysicalTable, err)
	}
	if injected != nil {
		return nil, injected
	}
	t, ok := m.tables[schema.PhysicalTable]
	if !ok {
		return nil, errors.NewStorageUnavailableError(op, schema.PhysicalTable, fmt.Errorf("table %s does not exist", schema.PhysicalTable))
	}
	return t, nil
}

// compareKeys orders primary keys of the same kind by value.
func compareKeys(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
