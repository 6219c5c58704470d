/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package authstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/suparena/authstore/config"
	"github.com/suparena/authstore/datastore"
	"github.com/suparena/authstore/datastore/ddb"
	"github.com/suparena/authstore/datastore/mock"
	"github.com/suparena/authstore/datastore/pebble"
	"github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/registry"
	"github.com/suparena/authstore/storagemodels"
	"github.com/suparena/authstore/table"
)

// Default physical table names.
const (
	DefaultUsersTable                = "users"
	DefaultRolesTable                = "roles"
	DefaultPendingRegistrationsTable = "register"
)

// Options configures New.
type Options struct {
	Keyspace                  string
	UsersTable                string
	RolesTable                string
	PendingRegistrationsTable string

	// Initialize creates the keyspace with Replication before the tables.
	Initialize  bool
	Replication storagemodels.ReplicationPolicy

	Logger *slog.Logger
}

func (o *Options) setDefaults() {
	if o.UsersTable == "" {
		o.UsersTable = DefaultUsersTable
	}
	if o.RolesTable == "" {
		o.RolesTable = DefaultRolesTable
	}
	if o.PendingRegistrationsTable == "" {
		o.PendingRegistrationsTable = DefaultPendingRegistrationsTable
	}
	if o.Replication.Class == 0 {
		o.Replication = storagemodels.SimpleReplication(1)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Backend binds the three auth tables to one driver.
type Backend struct {
	Users                *table.Table[string]
	Roles                *table.ScalarTable[string, int64]
	PendingRegistrations *table.Table[string]

	driver  datastore.Driver
	schemas *registry.SchemaRegistry
	logger  *slog.Logger
}

// New prepares storage and binds the tables. Any initialization failure is
// fatal; nothing created before the failure is rolled back.
func New(ctx context.Context, driver datastore.Driver, opts Options) (*Backend, error) {
	if driver == nil {
		return nil, errors.NewUnsupportedBackendError("nil")
	}
	opts.setDefaults()
	logger := opts.Logger.With("backend", driver.Name())

	if opts.Initialize {
		if err := opts.Replication.Validate(); err != nil {
			return nil, err
		}
		logger.Info("creating keyspace", "keyspace", opts.Keyspace, "replication", opts.Replication.Class.String())
		if err := driver.CreateKeyspace(ctx, opts.Keyspace, opts.Replication); err != nil {
			if errors.IsUnsupportedReplicationPolicy(err) {
				return nil, err
			}
			return nil, errors.NewSchemaInitializationError(opts.Keyspace, err)
		}
	}

	schemas := registry.NewSchemaRegistry()
	for _, s := range []storagemodels.EntitySchema{
		UserSchema(opts.UsersTable),
		RoleSchema(opts.RolesTable),
		PendingRegistrationSchema(opts.PendingRegistrationsTable),
	} {
		if err := schemas.Register(s); err != nil {
			return nil, err
		}
	}

	for _, s := range schemas.All() {
		if err := driver.EnsureTableSchema(ctx, s); err != nil {
			if errors.IsSchemaInitialization(err) {
				return nil, err
			}
			return nil, errors.NewSchemaInitializationError(s.PhysicalTable, err)
		}
		logger.Debug("table ready", "table", s.PhysicalTable)
	}

	b := &Backend{driver: driver, schemas: schemas, logger: logger}
	tableOpts := []table.Option{table.WithLogger(logger)}

	var err error
	if b.Users, err = table.New[string](driver, UserSchema(opts.UsersTable), tableOpts...); err != nil {
		return nil, err
	}
	if b.Roles, err = table.NewScalar[string, int64](driver, RoleSchema(opts.RolesTable), ColLevel, tableOpts...); err != nil {
		return nil, err
	}
	if b.PendingRegistrations, err = table.New[string](driver, PendingRegistrationSchema(opts.PendingRegistrationsTable), tableOpts...); err != nil {
		return nil, err
	}
	return b, nil
}

// Open builds the driver selected by cfg.Backend and binds the tables to it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	policy, err := cfg.ReplicationPolicy()
	if err != nil {
		return nil, err
	}

	var driver datastore.Driver
	switch cfg.Backend {
	case config.BackendDynamoDB:
		client, err := ddb.NewClient(ctx, ddb.ClientOptions{
			Region:    cfg.DynamoDB.Region,
			AccessKey: cfg.DynamoDB.AccessKey,
			SecretKey: cfg.DynamoDB.SecretKey,
			Endpoint:  cfg.DynamoDB.Endpoint,
		})
		if err != nil {
			return nil, errors.NewStorageUnavailableError("connect", cfg.Keyspace, err)
		}
		driver = ddb.New(client, cfg.Keyspace,
			ddb.WithRegion(cfg.DynamoDB.Region),
			ddb.WithWaitTimeout(cfg.DynamoDB.WaitTimeout),
			ddb.WithLogger(logger),
		)
	case config.BackendPebble:
		driver, err = pebble.Open(cfg.Pebble.Path, cfg.Keyspace,
			pebble.WithCacheSize(cfg.Pebble.CacheSize),
			pebble.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
	case config.BackendMemory:
		driver = mock.New()
	default:
		return nil, errors.NewUnsupportedBackendError(cfg.Backend)
	}

	b, err := New(ctx, driver, Options{
		Keyspace:                  cfg.Keyspace,
		UsersTable:                cfg.Tables.Users,
		RolesTable:                cfg.Tables.Roles,
		PendingRegistrationsTable: cfg.Tables.PendingRegistrations,
		Initialize:                cfg.Initialize,
		Replication:               policy,
		Logger:                    logger,
	})
	if err != nil {
		if cerr := driver.Close(); cerr != nil {
			logger.Warn("failed to close driver", "error", cerr)
		}
		return nil, err
	}
	return b, nil
}

// Driver returns the underlying storage driver.
func (b *Backend) Driver() datastore.Driver { return b.driver }

// Schemas returns the registered table schemas.
func (b *Backend) Schemas() *registry.SchemaRegistry { return b.schemas }

// DropAllTables drops the users, roles and pending registrations tables.
func (b *Backend) DropAllTables(ctx context.Context) error {
	for _, s := range b.schemas.All() {
		if err := b.driver.DropTable(ctx, s); err != nil {
			return fmt.Errorf("drop %s: %w", s.PhysicalTable, err)
		}
		b.logger.Info("table dropped", "table", s.PhysicalTable)
	}
	return nil
}

// Close releases the driver.
func (b *Backend) Close() error {
	return b.driver.Close()
}
