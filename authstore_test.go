/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package authstore

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/authstore/config"
	"github.com/suparena/authstore/datastore/mock"
	"github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

func newBackend(t *testing.T) (*Backend, *mock.Driver) {
	t.Helper()
	m := mock.New()
	b, err := New(context.Background(), m, Options{Keyspace: "auth", Initialize: true})
	require.NoError(t, err)
	return b, m
}

func TestNewDefaults(t *testing.T) {
	b, m := newBackend(t)

	assert.Equal(t, []string{"register", "roles", "users"}, m.Tables())
	assert.Equal(t, storagemodels.SimpleReplication(1), m.Keyspaces()["auth"])

	assert.Equal(t, "users", b.Users.Name())
	assert.Equal(t, "level", b.Roles.Column())
	assert.Equal(t, "pending_registrations", b.PendingRegistrations.Name())
	assert.Equal(t, 3, b.Schemas().Len())
	assert.Same(t, m, b.Driver())
}

func TestNewCustomTableNames(t *testing.T) {
	m := mock.New()
	_, err := New(context.Background(), m, Options{
		Keyspace:                  "auth",
		UsersTable:                "accounts",
		RolesTable:                "grants",
		PendingRegistrationsTable: "signups",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"accounts", "grants", "signups"}, m.Tables())
	assert.Empty(t, m.Keyspaces(), "keyspace is only created when initializing")
}

func TestNewFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		driver func() *mock.Driver
		opts   Options
		check  func(error) bool
	}{
		{
			name:   "invalid_replication",
			driver: mock.New,
			opts:   Options{Keyspace: "auth", Initialize: true, Replication: storagemodels.SimpleReplication(0)},
			check:  errors.IsUnsupportedReplicationPolicy,
		},
		{
			name:   "empty_topology",
			driver: mock.New,
			opts:   Options{Keyspace: "auth", Initialize: true, Replication: storagemodels.NetworkTopologyReplication(nil)},
			check:  errors.IsUnsupportedReplicationPolicy,
		},
		{
			name:   "keyspace_failure",
			driver: func() *mock.Driver { return mock.New().WithSchemaError(stderrors.New("cluster unreachable")) },
			opts:   Options{Keyspace: "auth", Initialize: true},
			check:  errors.IsSchemaInitialization,
		},
		{
			name:   "table_failure",
			driver: func() *mock.Driver { return mock.New().WithSchemaError(stderrors.New("cluster unreachable")) },
			opts:   Options{Keyspace: "auth"},
			check:  errors.IsSchemaInitialization,
		},
		{
			name:   "duplicate_tables",
			driver: mock.New,
			opts:   Options{Keyspace: "auth", UsersTable: "t", RolesTable: "t"},
			check:  errors.IsAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(ctx, tt.driver(), tt.opts)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	_, err := New(ctx, nil, Options{})
	assert.True(t, errors.IsUnsupportedBackend(err))
}

func TestBackendTables(t *testing.T) {
	ctx := context.Background()
	b, _ := newBackend(t)

	require.NoError(t, b.Roles.Set(ctx, "admin", 100))
	require.NoError(t, b.Roles.Set(ctx, "user", 10))
	level, err := b.Roles.Get(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(100), level)

	require.NoError(t, b.Users.Set(ctx, "alice", map[string]any{ColRole: "admin"}))
	row, err := b.Users.Get(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, row.Set(ctx, ColDesc, "operator"))

	again, err := b.Users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{ColRole: "admin", ColDesc: "operator"}, again.Fields())
}

func TestDropAllTables(t *testing.T) {
	ctx := context.Background()
	b, m := newBackend(t)

	require.NoError(t, b.DropAllTables(ctx))
	assert.Empty(t, m.Tables())

	_, err := b.Users.Len(ctx)
	assert.Error(t, err)
	require.NoError(t, b.Close())
}

func testConfig(backend string) *config.Config {
	return &config.Config{
		Backend:    backend,
		Keyspace:   "auth",
		Initialize: true,
		Tables: config.TablesConfig{
			Users:                "users",
			Roles:                "roles",
			PendingRegistrations: "register",
		},
		Replication: config.ReplicationConfig{Class: "simple", Factor: 1},
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		b, err := Open(ctx, testConfig(config.BackendMemory), nil)
		require.NoError(t, err)
		defer b.Close()
		assert.Equal(t, "memory", b.Driver().Name())
	})

	t.Run("pebble", func(t *testing.T) {
		cfg := testConfig(config.BackendPebble)
		cfg.Pebble = config.PebbleConfig{Path: filepath.Join(t.TempDir(), "db"), CacheSize: 1 << 20}

		b, err := Open(ctx, cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, "pebble", b.Driver().Name())

		require.NoError(t, b.Roles.Set(ctx, "admin", 100))
		require.NoError(t, b.Close())

		cfg.Initialize = false
		reopened, err := Open(ctx, cfg, nil)
		require.NoError(t, err)
		defer reopened.Close()

		level, err := reopened.Roles.Get(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, int64(100), level)
	})

	t.Run("pebble_rejects_topology", func(t *testing.T) {
		cfg := testConfig(config.BackendPebble)
		cfg.Pebble = config.PebbleConfig{Path: filepath.Join(t.TempDir(), "db"), CacheSize: 1 << 20}
		cfg.Replication = config.ReplicationConfig{Class: "network_topology", Datacenters: map[string]int{"dc1": 3}}

		_, err := Open(ctx, cfg, nil)
		assert.True(t, errors.IsUnsupportedReplicationPolicy(err))
	})

	t.Run("unknown_backend", func(t *testing.T) {
		_, err := Open(ctx, testConfig("cassandra"), nil)
		assert.True(t, errors.IsUnsupportedBackend(err))
	})
}
