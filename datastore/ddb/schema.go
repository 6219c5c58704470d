/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	autherrors "github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// CreateKeyspace records the replication policy applied to tables created
// afterwards. DynamoDB has no keyspace object; the keyspace is a name prefix.
func (d *Driver) CreateKeyspace(ctx context.Context, name string, policy storagemodels.ReplicationPolicy) error {
	if err := ctx.Err(); err != nil {
		return autherrors.NewStorageUnavailableError("create keyspace", name, err)
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	if policy.Class == storagemodels.ReplicationNetworkTopology && d.region == "" {
		return autherrors.NewUnsupportedReplicationPolicyError(policy.Class.String(), "home region is required for replica placement")
	}
	if policy.Class == storagemodels.ReplicationSimple && policy.Factor > 1 {
		d.logger.Info("replication factor is managed by DynamoDB", "keyspace", name, "factor", policy.Factor)
	}

	d.mu.Lock()
	d.policies[name] = policy
	d.mu.Unlock()

	d.logger.Debug("keyspace registered", "keyspace", name, "policy", policy.Class.String())
	return nil
}

// EnsureTableSchema creates the table when missing and waits for it to become
// active. Value columns are schemaless in DynamoDB; only the hash key is checked.
func (d *Driver) EnsureTableSchema(ctx context.Context, schema storagemodels.EntitySchema) error {
	if err := schema.Validate(); err != nil {
		return autherrors.NewSchemaInitializationError(schema.PhysicalTable, err)
	}
	table := d.TableName(schema)

	out, err := d.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(table)})
	switch {
	case err == nil:
		return checkKeySchema(table, schema, out.Table)
	case !isTableMissing(err):
		return autherrors.NewSchemaInitializationError(table, err)
	}

	policy := d.replication()
	input := &sdk.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{{
			AttributeName: aws.String(schema.PrimaryKey.Name),
			AttributeType: keyAttributeType(schema.PrimaryKey.Kind),
		}},
		KeySchema: []types.KeySchemaElement{{
			AttributeName: aws.String(schema.PrimaryKey.Name),
			KeyType:       types.KeyTypeHash,
		}},
		BillingMode: types.BillingModePayPerRequest,
	}
	if policy.Class == storagemodels.ReplicationNetworkTopology {
		// global tables replicate through streams
		input.StreamSpecification = &types.StreamSpecification{
			StreamEnabled:  aws.Bool(true),
			StreamViewType: types.StreamViewTypeNewAndOldImages,
		}
	}

	if _, err := d.client.CreateTable(ctx, input); err != nil {
		return autherrors.NewSchemaInitializationError(table, fmt.Errorf("create table: %w", err))
	}
	waiter := sdk.NewTableExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(table)}, d.waitTimeout); err != nil {
		return autherrors.NewSchemaInitializationError(table, fmt.Errorf("wait for table: %w", err))
	}
	d.logger.Info("table created", "table", table, "key", schema.PrimaryKey.Name)

	if policy.Class == storagemodels.ReplicationNetworkTopology {
		return d.addReplicas(ctx, table, policy)
	}
	return nil
}

// addReplicas turns the table into a global table with one replica per
// non-home region. Replicas are added one at a time as the API requires.
func (d *Driver) addReplicas(ctx context.Context, table string, policy storagemodels.ReplicationPolicy) error {
	waiter := sdk.NewTableExistsWaiter(d.client)
	for _, region := range policy.Datacenters() {
		if region == d.region {
			continue
		}
		_, err := d.client.UpdateTable(ctx, &sdk.UpdateTableInput{
			TableName: aws.String(table),
			ReplicaUpdates: []types.ReplicationGroupUpdate{{
				Create: &types.CreateReplicationGroupMemberAction{RegionName: aws.String(region)},
			}},
		})
		if err != nil {
			return autherrors.NewSchemaInitializationError(table, fmt.Errorf("add replica %s: %w", region, err))
		}
		if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(table)}, d.waitTimeout); err != nil {
			return autherrors.NewSchemaInitializationError(table, fmt.Errorf("wait for replica %s: %w", region, err))
		}
		d.logger.Info("replica added", "table", table, "region", region)
	}
	return nil
}

func checkKeySchema(table string, schema storagemodels.EntitySchema, desc *types.TableDescription) error {
	if desc == nil {
		return autherrors.NewSchemaInitializationError(table, fmt.Errorf("empty table description"))
	}
	var hashKey string
	for _, k := range desc.KeySchema {
		if k.KeyType == types.KeyTypeHash {
			hashKey = aws.ToString(k.AttributeName)
		}
	}
	if hashKey != schema.PrimaryKey.Name {
		return autherrors.NewSchemaInitializationError(table,
			fmt.Errorf("primary key %s cannot change to %s", hashKey, schema.PrimaryKey.Name))
	}
	for _, def := range desc.AttributeDefinitions {
		if aws.ToString(def.AttributeName) == hashKey && def.AttributeType != keyAttributeType(schema.PrimaryKey.Kind) {
			return autherrors.NewSchemaInitializationError(table,
				fmt.Errorf("primary key %s has type %s, want %s", hashKey, def.AttributeType, keyAttributeType(schema.PrimaryKey.Kind)))
		}
	}
	return nil
}

// DropTable deletes the table and waits until it is gone. A missing table is not an error.
func (d *Driver) DropTable(ctx context.Context, schema storagemodels.EntitySchema) error {
	table := d.TableName(schema)

	_, err := d.client.DeleteTable(ctx, &sdk.DeleteTableInput{TableName: aws.String(table)})
	if err != nil {
		if isTableMissing(err) {
			return nil
		}
		return classifyWrite("drop table", table, nil, err)
	}

	waiter := sdk.NewTableNotExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(table)}, d.waitTimeout); err != nil {
		return autherrors.NewStorageUnavailableError("drop table", table, err)
	}
	d.logger.Info("table dropped", "table", table)
	return nil
}
