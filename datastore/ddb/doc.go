/*
Package ddb provides a DynamoDB implementation of the datastore.Driver interface.

Each entity table is a DynamoDB table with a single hash key named after the
schema's primary-key column. The keyspace becomes a table name prefix:

	d := ddb.New(client, "auth", ddb.WithRegion("us-east-1"))
	// the users table is stored as "auth.users"

Key Features:

  - Consistent reads for lookups, counts and scans
  - Conditional updates and deletes that report KeyNotFoundError for absent rows
  - Paginated streaming scans with progress reporting
  - Truncation through batched deletes with resubmission of unprocessed items
  - Network-topology replication through global-table replicas

Replication:
A simple policy creates single-region tables; DynamoDB manages durability, so
the factor is informational. A network-topology policy names AWS regions as
datacenters: tables are created with streams enabled and a replica is added
for every region other than the home region.

Use NewClient with an Endpoint to target DynamoDB Local in development.
*/
package ddb
