/*
Package authstore stores the users, roles and pending registrations of an
authentication service behind dictionary-style tables.

A Backend binds the three tables to one storage driver. New prepares the
keyspace (when asked) and the tables, then exposes them:

	b, err := authstore.New(ctx, driver, authstore.Options{
		Keyspace:    "auth",
		Initialize:  true,
		Replication: storagemodels.SimpleReplication(1),
	})

	err = b.Users.Set(ctx, "alice", map[string]any{"role": "admin"})
	row, err := b.Users.Get(ctx, "alice")
	err = row.Set(ctx, "email_addr", "alice@example.com") // written through

	err = b.Roles.Set(ctx, "admin", 100)
	level, err := b.Roles.Get(ctx, "admin")

Open builds the driver from a config.Config: DynamoDB, an embedded pebble
store, or the in-memory driver.

Typed helpers (SaveUser, User, SavePendingRegistration, ConfirmRegistration)
convert rows to the User and PendingRegistration structs.
*/
package authstore
