/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/authstore/storagemodels"
)

// Driver is the storage collaborator consumed by the table proxies.
//
// Keys and column values crossing this boundary are already coerced to the
// schema's Go types. Implementations must be safe for concurrent use and must
// report failures typed: KeyNotFoundError, StorageUnavailableError,
// StorageWriteError, SchemaInitializationError or
// UnsupportedReplicationPolicyError.
type Driver interface {
	// Name identifies the driver in logs and errors.
	Name() string

	CreateKeyspace(ctx context.Context, name string, policy storagemodels.ReplicationPolicy) error

	// EnsureTableSchema creates the table or reconciles its value columns. Idempotent.
	EnsureTableSchema(ctx context.Context, schema storagemodels.EntitySchema) error

	DropTable(ctx context.Context, schema storagemodels.EntitySchema) error

	// QueryByPrimaryKey returns nil, nil when no row matches.
	QueryByPrimaryKey(ctx context.Context, schema storagemodels.EntitySchema, key any) (*storagemodels.Row, error)

	CountAll(ctx context.Context, schema storagemodels.EntitySchema) (int64, error)

	CountByPrimaryKey(ctx context.Context, schema storagemodels.EntitySchema, key any) (int64, error)

	// InsertRow writes a full row. A duplicate key silently overwrites.
	InsertRow(ctx context.Context, schema storagemodels.EntitySchema, row storagemodels.Row) error

	// UpdateFields writes the given columns of an existing row; a nil value
	// unsets the column. Fails with KeyNotFoundError when the row is absent.
	UpdateFields(ctx context.Context, schema storagemodels.EntitySchema, key any, fields map[string]any) error

	// DeleteRow fails with KeyNotFoundError when the row is absent.
	DeleteRow(ctx context.Context, schema storagemodels.EntitySchema, key any) error

	// ScanAll streams every row of the table in storage order. The channel is
	// closed when the scan ends or fails; the last result carries Error on
	// failure, including a StorageUnavailableError when ctx ends early.
	ScanAll(ctx context.Context, schema storagemodels.EntitySchema, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Row]

	// Truncate removes every row of the table.
	Truncate(ctx context.Context, schema storagemodels.EntitySchema) error

	Close() error
}
