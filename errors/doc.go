/*
Package errors provides semantic error types for the authstore library.

Every storage failure surfaces typed; nothing is swallowed. Types can be
checked with the standard errors.Is() function or the provided helpers.

Taxonomy:

	ErrKeyNotFound                   lookup/delete on an absent key (recoverable)
	ErrStorageUnavailable            driver, connection, timeout or cancellation failure
	ErrStorageWrite                  write rejected or partially applied (never retried)
	ErrSchemaInitialization          keyspace/table setup failure (fatal at startup)
	ErrUnsupportedReplicationPolicy  replication configuration error (fatal at startup)
	ErrUnsupportedBackend            missing or unknown storage driver
	ErrInvalidInput                  malformed key, unknown column, bad value

Usage:

	level, err := backend.Roles.Get(ctx, "admin")
	if err != nil {
	    if errors.IsKeyNotFound(err) {
	        return 0, fmt.Errorf("role %q does not exist", "admin")
	    }
	    return 0, err
	}
*/
package errors
