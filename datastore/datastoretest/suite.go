/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package datastoretest holds the conformance suite run against every datastore.Driver.
package datastoretest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/authstore/datastore"
	"github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// Accounts is a text-keyed schema covering every column kind.
var Accounts = storagemodels.EntitySchema{
	Name:          "accounts",
	PhysicalTable: "accounts",
	PrimaryKey:    storagemodels.Text("username"),
	Columns: []storagemodels.Column{
		storagemodels.Text("email_addr"),
		storagemodels.Int("level"),
		storagemodels.Bool("active"),
	},
}

// Counters is an int-keyed schema.
var Counters = storagemodels.EntitySchema{
	Name:          "counters",
	PhysicalTable: "counters",
	PrimaryKey:    storagemodels.Int("id"),
	Columns:       []storagemodels.Column{storagemodels.Text("label")},
}

// Factory opens a fresh, empty driver for one test case.
type Factory func(t *testing.T) datastore.Driver

// Run executes the conformance suite. keyspace is created with simple
// replication before the tables are ensured.
func Run(t *testing.T, keyspace string, newDriver Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, d datastore.Driver)
	}{
		{name: "query_absent_key", fn: testQueryAbsent},
		{name: "insert_and_query", fn: testInsertAndQuery},
		{name: "insert_overwrites", fn: testInsertOverwrites},
		{name: "update_fields_merge", fn: testUpdateFieldsMerge},
		{name: "update_absent_key", fn: testUpdateAbsent},
		{name: "delete_row", fn: testDeleteRow},
		{name: "scan_all", fn: testScanAll},
		{name: "scan_cancel", fn: testScanCancel},
		{name: "scan_cancelled_upfront", fn: testScanCancelledUpfront},
		{name: "truncate", fn: testTruncate},
		{name: "int_keys", fn: testIntKeys},
		{name: "ensure_schema_idempotent", fn: testEnsureIdempotent},
		{name: "drop_table", fn: testDropTable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := newDriver(t)
			t.Cleanup(func() {
				_ = d.Close()
			})

			ctx := context.Background()
			require.NoError(t, d.CreateKeyspace(ctx, keyspace, storagemodels.SimpleReplication(1)))
			require.NoError(t, d.EnsureTableSchema(ctx, Accounts))
			require.NoError(t, d.EnsureTableSchema(ctx, Counters))

			tc.fn(t, d)
		})
	}
}

func account(name, email string, level int64, active bool) storagemodels.Row {
	return storagemodels.Row{
		Key: name,
		Columns: map[string]any{
			"email_addr": email,
			"level":      level,
			"active":     active,
		},
	}
}

func testQueryAbsent(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	row, err := d.QueryByPrimaryKey(ctx, Accounts, "nobody")
	require.NoError(t, err)
	assert.Nil(t, row)

	n, err := d.CountByPrimaryKey(ctx, Accounts, "nobody")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testInsertAndQuery(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	require.NoError(t, d.InsertRow(ctx, Accounts, account("alice", "alice@example.com", 10, true)))

	row, err := d.QueryByPrimaryKey(ctx, Accounts, "alice")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "alice", row.Key)
	assert.Equal(t, map[string]any{
		"email_addr": "alice@example.com",
		"level":      int64(10),
		"active":     true,
	}, row.Columns)

	n, err := d.CountByPrimaryKey(ctx, Accounts, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	total, err := d.CountAll(ctx, Accounts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func testInsertOverwrites(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	require.NoError(t, d.InsertRow(ctx, Accounts, account("bob", "bob@example.com", 1, false)))
	require.NoError(t, d.InsertRow(ctx, Accounts, storagemodels.Row{
		Key:     "bob",
		Columns: map[string]any{"level": int64(2)},
	}))

	row, err := d.QueryByPrimaryKey(ctx, Accounts, "bob")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, map[string]any{"level": int64(2)}, row.Columns, "insert replaces the whole row")

	total, err := d.CountAll(ctx, Accounts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func testUpdateFieldsMerge(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	require.NoError(t, d.InsertRow(ctx, Accounts, account("carol", "carol@example.com", 5, true)))
	require.NoError(t, d.UpdateFields(ctx, Accounts, "carol", map[string]any{"level": int64(6)}))

	row, err := d.QueryByPrimaryKey(ctx, Accounts, "carol")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(6), row.Columns["level"])
	assert.Equal(t, "carol@example.com", row.Columns["email_addr"])
	assert.Equal(t, true, row.Columns["active"])

	// nil unsets a column
	require.NoError(t, d.UpdateFields(ctx, Accounts, "carol", map[string]any{"email_addr": nil}))
	row, err = d.QueryByPrimaryKey(ctx, Accounts, "carol")
	require.NoError(t, err)
	require.NotNil(t, row)
	_, present := row.Columns["email_addr"]
	assert.False(t, present)
}

func testUpdateAbsent(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	err := d.UpdateFields(ctx, Accounts, "ghost", map[string]any{"level": int64(1)})
	assert.True(t, errors.IsKeyNotFound(err), "got %v", err)

	row, err := d.QueryByPrimaryKey(ctx, Accounts, "ghost")
	require.NoError(t, err)
	assert.Nil(t, row, "update must not create rows")
}

func testDeleteRow(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	require.NoError(t, d.InsertRow(ctx, Accounts, account("dave", "dave@example.com", 1, true)))
	require.NoError(t, d.DeleteRow(ctx, Accounts, "dave"))

	n, err := d.CountByPrimaryKey(ctx, Accounts, "dave")
	require.NoError(t, err)
	assert.Zero(t, n)

	err = d.DeleteRow(ctx, Accounts, "dave")
	assert.True(t, errors.IsKeyNotFound(err), "got %v", err)
}

func collect(t *testing.T, ch <-chan storagemodels.StreamResult[storagemodels.Row]) []storagemodels.Row {
	t.Helper()
	var rows []storagemodels.Row
	for r := range ch {
		require.NoError(t, r.Error)
		rows = append(rows, r.Item)
	}
	return rows
}

func testScanAll(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	const n = 7
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("user%02d", i)
		require.NoError(t, d.InsertRow(ctx, Accounts, account(name, name+"@example.com", int64(i), i%2 == 0)))
	}

	for pass := 0; pass < 2; pass++ {
		rows := collect(t, d.ScanAll(ctx, Accounts, storagemodels.WithPageSize(3)))
		require.Len(t, rows, n)

		seen := make(map[any]bool, n)
		for _, r := range rows {
			assert.False(t, seen[r.Key], "duplicate key %v", r.Key)
			seen[r.Key] = true
			name := r.Key.(string)
			assert.Equal(t, name+"@example.com", r.Columns["email_addr"])
		}
	}
}

func testScanCancel(t *testing.T, d datastore.Driver) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 20; i++ {
		require.NoError(t, d.InsertRow(ctx, Accounts, account(fmt.Sprintf("u%02d", i), "x@example.com", 0, false)))
	}

	ch := d.ScanAll(ctx, Accounts, storagemodels.WithBufferSize(0), storagemodels.WithPageSize(2))
	first, ok := <-ch
	require.True(t, ok)
	require.NoError(t, first.Error)
	cancel()

	done := make(chan []storagemodels.StreamResult[storagemodels.Row])
	go func() {
		var rest []storagemodels.StreamResult[storagemodels.Row]
		for r := range ch {
			rest = append(rest, r)
		}
		done <- rest
	}()

	var rest []storagemodels.StreamResult[storagemodels.Row]
	select {
	case rest = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not stop after cancellation")
	}

	require.NotEmpty(t, rest, "a cancelled scan must end with an error result")
	last := rest[len(rest)-1]
	assert.True(t, errors.IsStorageUnavailable(last.Error), "got %v", last.Error)
	for _, r := range rest[:len(rest)-1] {
		assert.NoError(t, r.Error)
	}
	assert.Less(t, len(rest), 20)
}

func testScanCancelledUpfront(t *testing.T, d datastore.Driver) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var results []storagemodels.StreamResult[storagemodels.Row]
	for r := range d.ScanAll(ctx, Accounts) {
		results = append(results, r)
	}
	require.NotEmpty(t, results)
	assert.True(t, errors.IsStorageUnavailable(results[len(results)-1].Error))
}

func testTruncate(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		require.NoError(t, d.InsertRow(ctx, Accounts, account(fmt.Sprintf("t%02d", i), "t@example.com", 0, true)))
	}
	require.NoError(t, d.InsertRow(ctx, Counters, storagemodels.Row{Key: int64(1), Columns: map[string]any{"label": "kept"}}))

	require.NoError(t, d.Truncate(ctx, Accounts))

	total, err := d.CountAll(ctx, Accounts)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, collect(t, d.ScanAll(ctx, Accounts)))

	other, err := d.CountAll(ctx, Counters)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "truncate is scoped to one table")
}

func testIntKeys(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	for _, id := range []int64{-5, 0, 3, 1 << 40} {
		require.NoError(t, d.InsertRow(ctx, Counters, storagemodels.Row{
			Key:     id,
			Columns: map[string]any{"label": fmt.Sprintf("c%d", id)},
		}))
	}

	row, err := d.QueryByPrimaryKey(ctx, Counters, int64(-5))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(-5), row.Key)
	assert.Equal(t, "c-5", row.Columns["label"])

	keys := make(map[int64]bool)
	for _, r := range collect(t, d.ScanAll(ctx, Counters)) {
		keys[r.Key.(int64)] = true
	}
	assert.Equal(t, map[int64]bool{-5: true, 0: true, 3: true, 1 << 40: true}, keys)
}

func testEnsureIdempotent(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	require.NoError(t, d.InsertRow(ctx, Accounts, account("erin", "erin@example.com", 1, true)))
	require.NoError(t, d.EnsureTableSchema(ctx, Accounts))

	n, err := d.CountAll(ctx, Accounts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "re-syncing a schema keeps the data")

	changed := Accounts
	changed.PrimaryKey = storagemodels.Text("email_addr")
	changed.Columns = []storagemodels.Column{storagemodels.Text("username")}
	err = d.EnsureTableSchema(ctx, changed)
	assert.True(t, errors.IsSchemaInitialization(err), "got %v", err)
}

func testDropTable(t *testing.T, d datastore.Driver) {
	ctx := context.Background()

	require.NoError(t, d.InsertRow(ctx, Counters, storagemodels.Row{Key: int64(9), Columns: map[string]any{"label": "x"}}))
	require.NoError(t, d.DropTable(ctx, Counters))
	require.NoError(t, d.DropTable(ctx, Counters), "dropping a missing table is not an error")

	require.NoError(t, d.EnsureTableSchema(ctx, Counters))
	n, err := d.CountAll(ctx, Counters)
	require.NoError(t, err)
	assert.Zero(t, n)
}
