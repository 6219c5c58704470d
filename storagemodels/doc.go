/*
Package storagemodels defines the data structures shared by the table proxies
and the storage drivers.

Key Types:

EntitySchema:
Immutable description of one entity table, passed to table construction
instead of mutating shared model classes:

	users := storagemodels.EntitySchema{
	    Name:          "users",
	    PhysicalTable: "users",
	    PrimaryKey:    storagemodels.Text("username"),
	    Columns: []storagemodels.Column{
	        storagemodels.Text("role"),
	        storagemodels.Text("hash"),
	    },
	}

Row:
A primary-key value plus named column values, as exchanged with drivers.

ReplicationPolicy:
Keyspace replication, either SimpleReplication(factor) or
NetworkTopologyReplication(map[datacenter]factor).

StreamResult:
Results from full-table scans with metadata:

	type StreamResult[T any] struct {
	    Item  T          // The decoded row or key
	    Error error      // Scan error, last result of the stream
	    Meta  StreamMeta // Metadata about this item
	}

StreamOptions:
Configuration for scan behavior:

	opts := []StreamOption{
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithProgressHandler(progressFunc),
	}
*/
package storagemodels
