/*
Package registry keeps the entity schemas a backend serves.

A SchemaRegistry is created per backend and populated during initialization;
it is never global, so independent backends in one process can describe
different tables:

	reg := registry.NewSchemaRegistry()
	if err := reg.Register(userSchema); err != nil {
	    return err // AlreadyExistsError on a duplicate name or table
	}
	for _, s := range reg.All() {
	    // ensure each table in registration order
	}

The registry is thread-safe.
*/
package registry
