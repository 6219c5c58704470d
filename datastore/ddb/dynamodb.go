/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	autherrors "github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// Driver implements datastore.Driver on DynamoDB. A keyspace maps to a table
// name prefix: table "users" in keyspace "auth" is stored as "auth.users".
type Driver struct {
	client      Client
	keyspace    string
	region      string
	waitTimeout time.Duration
	logger      *slog.Logger

	mu       sync.RWMutex
	policies map[string]storagemodels.ReplicationPolicy
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for driver events.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithRegion names the home region. Network-topology replicas are added for
// every other region in the policy.
func WithRegion(region string) Option {
	return func(d *Driver) {
		d.region = region
	}
}

// WithWaitTimeout bounds how long table creation and deletion are awaited.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(d *Driver) {
		d.waitTimeout = timeout
	}
}

// New binds a DynamoDB client to a keyspace.
func New(client Client, keyspace string, opts ...Option) *Driver {
	d := &Driver{
		client:      client,
		keyspace:    keyspace,
		waitTimeout: 5 * time.Minute,
		logger:      slog.Default(),
		policies:    make(map[string]storagemodels.ReplicationPolicy),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements datastore.Driver.
func (d *Driver) Name() string { return "dynamodb" }

// Close implements datastore.Driver. The SDK client holds no resources to release.
func (d *Driver) Close() error { return nil }

// TableName returns the physical DynamoDB table name of a schema.
func (d *Driver) TableName(schema storagemodels.EntitySchema) string {
	if d.keyspace == "" {
		return schema.PhysicalTable
	}
	return d.keyspace + "." + schema.PhysicalTable
}

// QueryByPrimaryKey implements datastore.Driver with a consistent GetItem.
func (d *Driver) QueryByPrimaryKey(ctx context.Context, schema storagemodels.EntitySchema, key any) (*storagemodels.Row, error) {
	table := d.TableName(schema)
	keyMap, err := keyAttributes(schema, key)
	if err != nil {
		return nil, err
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(table),
		Key:            keyMap,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classifyRead("query", table, err)
	}
	if out.Item == nil {
		return nil, nil
	}
	row, err := decodeItem(schema, out.Item)
	if err != nil {
		return nil, autherrors.NewStorageUnavailableError("decode", table, err)
	}
	return &row, nil
}

// CountAll implements datastore.Driver with a paginated COUNT scan.
func (d *Driver) CountAll(ctx context.Context, schema storagemodels.EntitySchema) (int64, error) {
	table := d.TableName(schema)
	paginator := sdk.NewScanPaginator(d.client, &sdk.ScanInput{
		TableName:      aws.String(table),
		Select:         types.SelectCount,
		ConsistentRead: aws.Bool(true),
	})

	var n int64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, classifyRead("count", table, err)
		}
		n += int64(page.Count)
	}
	return n, nil
}

// CountByPrimaryKey implements datastore.Driver with a COUNT query on the hash key.
func (d *Driver) CountByPrimaryKey(ctx context.Context, schema storagemodels.EntitySchema, key any) (int64, error) {
	table := d.TableName(schema)
	av, err := keyValue(schema, key)
	if err != nil {
		return 0, err
	}

	out, err := d.client.Query(ctx, &sdk.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String("#pk = :pk"),
		ExpressionAttributeNames:  map[string]string{"#pk": schema.PrimaryKey.Name},
		ExpressionAttributeValues: map[string]types.AttributeValue{":pk": av},
		Select:                    types.SelectCount,
		ConsistentRead:            aws.Bool(true),
	})
	if err != nil {
		return 0, classifyRead("count", table, err)
	}
	return int64(out.Count), nil
}

// InsertRow implements datastore.Driver. PutItem replaces any existing item.
func (d *Driver) InsertRow(ctx context.Context, schema storagemodels.EntitySchema, row storagemodels.Row) error {
	table := d.TableName(schema)
	item, err := encodeItem(schema, row)
	if err != nil {
		return err
	}

	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return classifyWrite("insert", table, row.Key, err)
	}
	return nil
}

// UpdateFields implements datastore.Driver with a conditional UpdateItem.
func (d *Driver) UpdateFields(ctx context.Context, schema storagemodels.EntitySchema, key any, fields map[string]any) error {
	if len(fields) == 0 {
		n, err := d.CountByPrimaryKey(ctx, schema, key)
		if err != nil {
			return err
		}
		if n == 0 {
			return autherrors.NewKeyNotFoundError(schema.Name, key)
		}
		return nil
	}

	table := d.TableName(schema)
	keyMap, err := keyAttributes(schema, key)
	if err != nil {
		return err
	}
	expr, names, values, err := buildUpdateExpression(fields)
	if err != nil {
		return autherrors.NewStorageWriteError("update", table, key, err)
	}
	names["#pk"] = schema.PrimaryKey.Name

	input := &sdk.UpdateItemInput{
		TableName:                aws.String(table),
		Key:                      keyMap,
		UpdateExpression:         aws.String(expr),
		ExpressionAttributeNames: names,
		ConditionExpression:      aws.String("attribute_exists(#pk)"),
		ReturnValues:             types.ReturnValueNone,
	}
	if len(values) > 0 {
		input.ExpressionAttributeValues = values
	}

	if _, err := d.client.UpdateItem(ctx, input); err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return autherrors.NewKeyNotFoundError(schema.Name, key)
		}
		return classifyWrite("update", table, key, err)
	}
	return nil
}

// DeleteRow implements datastore.Driver with a conditional DeleteItem.
func (d *Driver) DeleteRow(ctx context.Context, schema storagemodels.EntitySchema, key any) error {
	table := d.TableName(schema)
	keyMap, err := keyAttributes(schema, key)
	if err != nil {
		return err
	}

	_, err = d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:                aws.String(table),
		Key:                      keyMap,
		ConditionExpression:      aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": schema.PrimaryKey.Name},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return autherrors.NewKeyNotFoundError(schema.Name, key)
		}
		return classifyWrite("delete", table, key, err)
	}
	return nil
}

// replication returns the policy recorded for the bound keyspace, simple
// when none was recorded.
func (d *Driver) replication() storagemodels.ReplicationPolicy {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p, ok := d.policies[d.keyspace]; ok {
		return p
	}
	return storagemodels.SimpleReplication(1)
}
