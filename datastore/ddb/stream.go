/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	autherrors "github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// maxBatchWrite is the BatchWriteItem request limit.
const maxBatchWrite = 25

// maxBatchAttempts bounds resubmission of unprocessed batch items.
const maxBatchAttempts = 5

// ScanAll performs a paginated, consistent scan and streams the decoded rows.
func (d *Driver) ScanAll(ctx context.Context, schema storagemodels.EntitySchema, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Row] {
	options := storagemodels.ApplyStreamOptions(opts...)

	// Create buffered result channel
	resultCh := storagemodels.NewResultChannel[storagemodels.Row](options)

	// Start streaming in background
	go d.streamWorker(ctx, schema, options, resultCh)

	return resultCh
}

// streamWorker handles the actual streaming logic
func (d *Driver) streamWorker(
	ctx context.Context,
	schema storagemodels.EntitySchema,
	options storagemodels.StreamOptions,
	resultCh chan storagemodels.StreamResult[storagemodels.Row],
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	startTime := time.Now()
	table := d.TableName(schema)

	input := &dynamodb.ScanInput{
		TableName:      aws.String(table),
		Limit:          aws.Int32(options.PageSize),
		ConsistentRead: aws.Bool(true),
	}

	for {
		out, err := d.client.Scan(ctx, input)
		if err != nil {
			storagemodels.Finish(resultCh, storagemodels.StreamResult[storagemodels.Row]{
				Error: classifyRead("scan", table, err),
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			})
			return
		}

		pageNumber++

		// Process items in current page
		for _, item := range out.Items {
			result := storagemodels.StreamResult[storagemodels.Row]{
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			}
			row, err := decodeItem(schema, item)
			if err != nil {
				result.Error = autherrors.NewStorageUnavailableError("decode", table, err)
			} else {
				result.Item = row
			}

			if result.Error != nil {
				storagemodels.Finish(resultCh, result)
				return
			}
			if !storagemodels.Send(ctx, resultCh, result) {
				storagemodels.Finish(resultCh, storagemodels.Canceled[storagemodels.Row](ctx, "scan", table, result.Meta))
				return
			}
			itemIndex++
		}

		// Report progress after each page
		if options.ProgressHandler != nil {
			options.ProgressHandler(storagemodels.NewProgress(itemIndex, pageNumber, startTime))
		}

		// Check for more pages
		if len(out.LastEvaluatedKey) == 0 {
			return
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// Truncate deletes every item with a key-only scan and batched deletes.
func (d *Driver) Truncate(ctx context.Context, schema storagemodels.EntitySchema) error {
	table := d.TableName(schema)
	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName:                aws.String(table),
		ProjectionExpression:     aws.String("#pk"),
		ExpressionAttributeNames: map[string]string{"#pk": schema.PrimaryKey.Name},
		ConsistentRead:           aws.Bool(true),
	})

	var deleted int
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return classifyRead("truncate", table, err)
		}
		for start := 0; start < len(page.Items); start += maxBatchWrite {
			end := min(start+maxBatchWrite, len(page.Items))
			requests := make([]types.WriteRequest, 0, end-start)
			for _, item := range page.Items[start:end] {
				requests = append(requests, types.WriteRequest{
					DeleteRequest: &types.DeleteRequest{
						Key: map[string]types.AttributeValue{schema.PrimaryKey.Name: item[schema.PrimaryKey.Name]},
					},
				})
			}
			if err := d.writeBatch(ctx, table, requests); err != nil {
				return err
			}
			deleted += len(requests)
		}
	}

	d.logger.Debug("table truncated", "table", table, "deleted", deleted)
	return nil
}

// writeBatch submits one BatchWriteItem and resubmits unprocessed requests
// with linear backoff.
func (d *Driver) writeBatch(ctx context.Context, table string, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{table: requests}

	for attempt := 0; attempt < maxBatchAttempts; attempt++ {
		out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil && !isRetryableError(err) {
			return classifyWrite("truncate", table, nil, err)
		}
		if err == nil {
			if len(out.UnprocessedItems[table]) == 0 {
				return nil
			}
			pending = out.UnprocessedItems
		}

		backoff := time.Duration(attempt+1) * 50 * time.Millisecond
		select {
		case <-ctx.Done():
			return autherrors.NewStorageUnavailableError("truncate", table, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return autherrors.NewStorageUnavailableError("truncate", table,
		fmt.Errorf("%d delete requests unprocessed after %d attempts", len(pending[table]), maxBatchAttempts))
}
