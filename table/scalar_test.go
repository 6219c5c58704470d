/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/authstore/datastore/mock"
	"github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

func newRoles(t *testing.T) (*ScalarTable[string, int64], *mock.Driver) {
	t.Helper()
	m := mock.New()
	setupDriver(t, m)
	roles, err := NewScalar[string, int64](m, roleSchema, "level")
	require.NoError(t, err)
	return roles, m
}

func TestNewScalarValidation(t *testing.T) {
	m := setupDriver(t, mock.New())

	_, err := NewScalar[string, int64](m, roleSchema, "rank")
	assert.True(t, errors.IsValidationError(err), "undeclared column")

	_, err = NewScalar[string, string](m, roleSchema, "level")
	assert.True(t, errors.IsValidationError(err), "value type mismatch")

	_, err = NewScalar[string, float64](m, roleSchema, "level")
	assert.True(t, errors.IsValidationError(err))

	roles, err := NewScalar[string, int64](m, roleSchema, "level")
	require.NoError(t, err)
	assert.Equal(t, "level", roles.Column())
}

func TestScalarSetGet(t *testing.T) {
	ctx := context.Background()
	roles, _ := newRoles(t)

	require.NoError(t, roles.Set(ctx, "admin", 10))

	level, err := roles.Get(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(10), level)

	require.NoError(t, roles.Set(ctx, "admin", 100))
	level, err = roles.Get(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(100), level)

	_, err = roles.Get(ctx, "ghost")
	assert.True(t, errors.IsKeyNotFound(err))
}

func TestScalarItems(t *testing.T) {
	ctx := context.Background()
	roles, _ := newRoles(t)

	require.NoError(t, roles.Set(ctx, "admin", 10))
	require.NoError(t, roles.Set(ctx, "user", 1))

	got := make(map[string]int64)
	for _, it := range drain(t, roles.Items(ctx)) {
		got[it.Key] = it.Value
	}
	assert.Equal(t, map[string]int64{"admin": 10, "user": 1}, got)
}

func TestScalarUnsetColumn(t *testing.T) {
	ctx := context.Background()
	roles, _ := newRoles(t)

	require.NoError(t, roles.InsertPositional(ctx, "guest", nil))

	level, err := roles.Get(ctx, "guest")
	require.NoError(t, err)
	assert.Zero(t, level)
}

func TestScalarInheritedOperations(t *testing.T) {
	ctx := context.Background()
	roles, _ := newRoles(t)

	require.NoError(t, roles.InsertPositional(ctx, "editor", int64(60)))
	require.NoError(t, roles.Set(ctx, "admin", 100))

	n, err := roles.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err := roles.Contains(ctx, "editor")
	require.NoError(t, err)
	assert.True(t, ok)

	keys := drain(t, roles.Keys(ctx))
	assert.ElementsMatch(t, []string{"editor", "admin"}, keys)

	deleted, err := roles.Delete(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, int64(60), deleted.Columns["level"])

	require.NoError(t, roles.Clear(ctx))
	n, err = roles.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScalarIntKeys(t *testing.T) {
	ctx := context.Background()
	schema := storagemodels.EntitySchema{
		Name:          "flags",
		PhysicalTable: "flags",
		PrimaryKey:    storagemodels.Int("id"),
		Columns:       []storagemodels.Column{storagemodels.Bool("enabled")},
	}
	m := mock.New()
	require.NoError(t, m.CreateKeyspace(ctx, "authtest", storagemodels.SimpleReplication(1)))
	require.NoError(t, m.EnsureTableSchema(ctx, schema))

	flags, err := NewScalar[int64, bool](m, schema, "enabled")
	require.NoError(t, err)

	require.NoError(t, flags.Set(ctx, 42, true))
	v, err := flags.Get(ctx, 42)
	require.NoError(t, err)
	assert.True(t, v)
}
