/*
Package table exposes entity tables as dictionaries keyed by primary key.

A Table[K] maps keys to RowProxy values. Reading a key returns a fresh
snapshot of the row; assigning a field on the snapshot writes that single
column through to storage before the snapshot changes:

	users, _ := table.New[string](driver, userSchema)

	ok, _ := users.Contains(ctx, "alice")
	row, err := users.Get(ctx, "alice") // KeyNotFoundError when absent
	err = row.Set(ctx, "email_addr", "alice@example.com")

Set merges fields into an existing row or inserts a new one:

	err = users.Set(ctx, "bob", map[string]any{"role": "user"})

ScalarTable[K, V] projects one column, so values are plain Go values:

	roles, _ := table.NewScalar[string, int64](driver, roleSchema, "level")
	err = roles.Set(ctx, "admin", 100)
	level, _ := roles.Get(ctx, "admin")

Keys and Items stream a full table scan through a channel; cancel the
context to stop early. Every operation blocks on the underlying driver.
*/
package table
