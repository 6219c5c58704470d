/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pebble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	autherrors "github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// rowRecord is the stored form of a row.
type rowRecord struct {
	Key     any            `json:"key"`
	Columns map[string]any `json:"columns"`
}

// CreateKeyspace records the keyspace. A single node can only honor simple replication.
func (d *Driver) CreateKeyspace(ctx context.Context, name string, policy storagemodels.ReplicationPolicy) error {
	if err := ctx.Err(); err != nil {
		return autherrors.NewStorageUnavailableError("create keyspace", name, err)
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	if policy.Class != storagemodels.ReplicationSimple {
		return autherrors.NewUnsupportedReplicationPolicyError(policy.Class.String(), "embedded store is single-node")
	}
	if policy.Factor > 1 {
		d.logger.Warn("replication factor ignored by embedded store", "keyspace", name, "factor", policy.Factor)
	}

	data, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to marshal replication policy: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return autherrors.NewStorageUnavailableError("create keyspace", name, ErrClosed)
	}
	if err := d.db.Set(keyspaceKey(name), data, pebble.Sync); err != nil {
		return d.writeErr("create keyspace", name, nil, err)
	}
	d.logger.Debug("keyspace created", "keyspace", name, "policy", policy.Class.String())
	return nil
}

// EnsureTableSchema stores the schema record. The keyspace must exist and the
// primary key of an existing table cannot change.
func (d *Driver) EnsureTableSchema(ctx context.Context, schema storagemodels.EntitySchema) error {
	if err := ctx.Err(); err != nil {
		return autherrors.NewStorageUnavailableError("ensure table", schema.PhysicalTable, err)
	}
	if err := schema.Validate(); err != nil {
		return autherrors.NewSchemaInitializationError(schema.PhysicalTable, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ks, err := d.get(keyspaceKey(d.keyspace))
	if err != nil {
		return d.readErr("ensure table", schema.PhysicalTable, err)
	}
	if ks == nil {
		return autherrors.NewSchemaInitializationError(schema.PhysicalTable, fmt.Errorf("keyspace %s does not exist", d.keyspace))
	}

	existing, err := d.loadSchema(schema.PhysicalTable)
	if err != nil {
		return d.readErr("ensure table", schema.PhysicalTable, err)
	}
	if existing != nil && existing.PrimaryKey != schema.PrimaryKey {
		return autherrors.NewSchemaInitializationError(schema.PhysicalTable,
			fmt.Errorf("primary key %s cannot change to %s", existing.PrimaryKey.Name, schema.PrimaryKey.Name))
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	if err := d.db.Set(schemaKey(d.keyspace, schema.PhysicalTable), data, pebble.Sync); err != nil {
		return autherrors.NewSchemaInitializationError(schema.PhysicalTable, err)
	}
	if existing == nil {
		d.logger.Info("table created", "keyspace", d.keyspace, "table", schema.PhysicalTable)
	}
	return nil
}

// DropTable removes the schema record and every row.
func (d *Driver) DropTable(ctx context.Context, schema storagemodels.EntitySchema) error {
	if err := ctx.Err(); err != nil {
		return autherrors.NewStorageUnavailableError("drop table", schema.PhysicalTable, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return autherrors.NewStorageUnavailableError("drop table", schema.PhysicalTable, ErrClosed)
	}
	prefix := rowPrefix(d.keyspace, schema.PhysicalTable)

	batch := d.db.NewBatch()
	defer batch.Close()
	if err := batch.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
		return d.writeErr("drop table", schema.PhysicalTable, nil, err)
	}
	if err := batch.Delete(schemaKey(d.keyspace, schema.PhysicalTable), nil); err != nil {
		return d.writeErr("drop table", schema.PhysicalTable, nil, err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return d.writeErr("drop table", schema.PhysicalTable, nil, err)
	}
	return nil
}

// QueryByPrimaryKey implements datastore.Driver.
func (d *Driver) QueryByPrimaryKey(ctx context.Context, schema storagemodels.EntitySchema, key any) (*storagemodels.Row, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	k, err := d.resolveRow(ctx, "query", schema, key)
	if err != nil {
		return nil, err
	}
	data, err := d.get(k)
	if err != nil {
		return nil, d.readErr("query", schema.PhysicalTable, err)
	}
	if data == nil {
		return nil, nil
	}
	row, err := decodeRow(schema, data)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CountAll implements datastore.Driver.
func (d *Driver) CountAll(ctx context.Context, schema storagemodels.EntitySchema) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.checkTable(ctx, "count", schema); err != nil {
		return 0, err
	}
	prefix := rowPrefix(d.keyspace, schema.PhysicalTable)
	iter, err := d.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return 0, d.readErr("count", schema.PhysicalTable, err)
	}
	defer iter.Close()

	var n int64
	for valid := iter.First(); valid; valid = iter.Next() {
		if err := ctx.Err(); err != nil {
			return 0, autherrors.NewStorageUnavailableError("count", schema.PhysicalTable, err)
		}
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, d.readErr("count", schema.PhysicalTable, err)
	}
	return n, nil
}

// CountByPrimaryKey implements datastore.Driver.
func (d *Driver) CountByPrimaryKey(ctx context.Context, schema storagemodels.EntitySchema, key any) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	k, err := d.resolveRow(ctx, "count", schema, key)
	if err != nil {
		return 0, err
	}
	data, err := d.get(k)
	if err != nil {
		return 0, d.readErr("count", schema.PhysicalTable, err)
	}
	if data == nil {
		return 0, nil
	}
	return 1, nil
}

// InsertRow implements datastore.Driver. A duplicate key is overwritten.
func (d *Driver) InsertRow(ctx context.Context, schema storagemodels.EntitySchema, row storagemodels.Row) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	k, err := d.resolveRow(ctx, "insert", schema, row.Key)
	if err != nil {
		return err
	}
	cols := make(map[string]any, len(row.Columns))
	for name, v := range row.Columns {
		if v != nil {
			cols[name] = v
		}
	}
	return d.putRow(schema, k, row.Key, cols, "insert")
}

// UpdateFields implements datastore.Driver.
func (d *Driver) UpdateFields(ctx context.Context, schema storagemodels.EntitySchema, key any, fields map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	k, err := d.resolveRow(ctx, "update", schema, key)
	if err != nil {
		return err
	}
	data, err := d.get(k)
	if err != nil {
		return d.readErr("update", schema.PhysicalTable, err)
	}
	if data == nil {
		return autherrors.NewKeyNotFoundError(schema.Name, key)
	}
	row, err := decodeRow(schema, data)
	if err != nil {
		return err
	}
	for name, v := range fields {
		if v == nil {
			delete(row.Columns, name)
			continue
		}
		row.Columns[name] = v
	}
	return d.putRow(schema, k, key, row.Columns, "update")
}

// DeleteRow implements datastore.Driver.
func (d *Driver) DeleteRow(ctx context.Context, schema storagemodels.EntitySchema, key any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	k, err := d.resolveRow(ctx, "delete", schema, key)
	if err != nil {
		return err
	}
	data, err := d.get(k)
	if err != nil {
		return d.readErr("delete", schema.PhysicalTable, err)
	}
	if data == nil {
		return autherrors.NewKeyNotFoundError(schema.Name, key)
	}
	if err := d.db.Delete(k, pebble.Sync); err != nil {
		return d.writeErr("delete", schema.PhysicalTable, key, err)
	}
	return nil
}

// Truncate implements datastore.Driver.
func (d *Driver) Truncate(ctx context.Context, schema storagemodels.EntitySchema) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkTable(ctx, "truncate", schema); err != nil {
		return err
	}
	prefix := rowPrefix(d.keyspace, schema.PhysicalTable)
	if err := d.db.DeleteRange(prefix, prefixEnd(prefix), pebble.Sync); err != nil {
		return d.writeErr("truncate", schema.PhysicalTable, nil, err)
	}
	return nil
}

func (d *Driver) putRow(schema storagemodels.EntitySchema, k []byte, key any, cols map[string]any, op string) error {
	data, err := json.Marshal(rowRecord{Key: key, Columns: cols})
	if err != nil {
		return autherrors.NewStorageWriteError(op, schema.PhysicalTable, key, err)
	}
	if err := d.db.Set(k, data, pebble.Sync); err != nil {
		return d.writeErr(op, schema.PhysicalTable, key, err)
	}
	return nil
}

// checkTable verifies the store is open and the table exists. Callers hold d.mu.
func (d *Driver) checkTable(ctx context.Context, op string, schema storagemodels.EntitySchema) error {
	if err := ctx.Err(); err != nil {
		return autherrors.NewStorageUnavailableError(op, schema.PhysicalTable, err)
	}
	if d.closed {
		return autherrors.NewStorageUnavailableError(op, schema.PhysicalTable, ErrClosed)
	}
	s, err := d.loadSchema(schema.PhysicalTable)
	if err != nil {
		return d.readErr(op, schema.PhysicalTable, err)
	}
	if s == nil {
		return autherrors.NewStorageUnavailableError(op, schema.PhysicalTable, fmt.Errorf("table %s does not exist", schema.PhysicalTable))
	}
	return nil
}

func (d *Driver) resolveRow(ctx context.Context, op string, schema storagemodels.EntitySchema, key any) ([]byte, error) {
	if err := d.checkTable(ctx, op, schema); err != nil {
		return nil, err
	}
	k, err := rowKey(rowPrefix(d.keyspace, schema.PhysicalTable), key)
	if err != nil {
		return nil, autherrors.NewValidationError(schema.PrimaryKey.Name, err.Error())
	}
	return k, nil
}

func (d *Driver) loadSchema(table string) (*storagemodels.EntitySchema, error) {
	data, err := d.get(schemaKey(d.keyspace, table))
	if err != nil || data == nil {
		return nil, err
	}
	var s storagemodels.EntitySchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt schema record for %s: %w", table, err)
	}
	return &s, nil
}

func decodeRow(schema storagemodels.EntitySchema, data []byte) (storagemodels.Row, error) {
	var rec rowRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return storagemodels.Row{}, autherrors.NewStorageUnavailableError("decode", schema.PhysicalTable, err)
	}
	row, err := schema.CoerceRow(storagemodels.Row{Key: rec.Key, Columns: rec.Columns})
	if err != nil {
		return storagemodels.Row{}, autherrors.NewStorageUnavailableError("decode", schema.PhysicalTable, err)
	}
	return row, nil
}
