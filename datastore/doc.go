/*
Package datastore defines the storage driver contract used by the table proxies.

A Driver exposes the row-level primitives of a column-family store
(primary-key lookup, counts, insert, partial update, delete, full scan,
truncate) plus the one-time setup operations (keyspace creation, table
schema sync, drop).

Implementations:
  - ddb: AWS DynamoDB (one physical table per entity, keyspace used as a table prefix)
  - pebble: embedded cockroachdb/pebble store for local and single-node use
  - mock: in-memory driver with error injection for tests

The datastoretest package holds the conformance suite every driver runs.
*/
package datastore
