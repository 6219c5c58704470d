/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeClient is an in-memory Client that understands the expressions the
// driver generates.
type fakeClient struct {
	mu     sync.Mutex
	tables map[string]*fakeTable

	// scanErr fails every Scan.
	scanErr error
	// unprocessedOnce leaves the last request of the next batch unprocessed.
	unprocessedOnce bool

	batchCalls int
	created    []*sdk.CreateTableInput
	replicas   []string
}

type fakeTable struct {
	desc  types.TableDescription
	items map[string]map[string]types.AttributeValue
}

func newFakeClient() *fakeClient {
	return &fakeClient{tables: make(map[string]*fakeTable)}
}

func notFound(table string) error {
	return &types.ResourceNotFoundException{Message: aws.String("Requested resource not found: " + table)}
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func attrString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value
	case *types.AttributeValueMemberN:
		return "N:" + v.Value
	default:
		return fmt.Sprintf("%T", av)
	}
}

func (f *fakeClient) table(name *string) (*fakeTable, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, notFound(aws.ToString(name))
	}
	return t, nil
}

func (t *fakeTable) hashKey() string {
	return aws.ToString(t.desc.KeySchema[0].AttributeName)
}

func (t *fakeTable) itemKey(key map[string]types.AttributeValue) string {
	return attrString(key[t.hashKey()])
}

func (t *fakeTable) sortedKeys() []string {
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *fakeClient) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[t.itemKey(in.Key)]
	if !ok {
		return &sdk.GetItemOutput{}, nil
	}
	return &sdk.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeClient) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	t.items[t.itemKey(in.Item)] = copyItem(in.Item)
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) UpdateItem(_ context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[t.itemKey(in.Key)]
	if !ok {
		return nil, conditionFailed()
	}

	expr := aws.ToString(in.UpdateExpression)
	setPart, removePart := expr, ""
	if i := strings.Index(expr, "REMOVE "); i >= 0 {
		setPart, removePart = expr[:i], expr[i+len("REMOVE "):]
	}
	setPart = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(setPart), "SET"))
	if setPart != "" {
		for _, clause := range strings.Split(setPart, ",") {
			parts := strings.SplitN(clause, "=", 2)
			name := in.ExpressionAttributeNames[strings.TrimSpace(parts[0])]
			item[name] = in.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
		}
	}
	if removePart != "" {
		for _, placeholder := range strings.Split(removePart, ",") {
			delete(item, in.ExpressionAttributeNames[strings.TrimSpace(placeholder)])
		}
	}
	return &sdk.UpdateItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k := t.itemKey(in.Key)
	if _, ok := t.items[k]; !ok {
		if in.ConditionExpression != nil {
			return nil, conditionFailed()
		}
		return &sdk.DeleteItemOutput{}, nil
	}
	delete(t.items, k)
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeClient) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	out := &sdk.QueryOutput{}
	if item, ok := t.items[attrString(in.ExpressionAttributeValues[":pk"])]; ok {
		out.Count = 1
		if in.Select != types.SelectCount {
			out.Items = []map[string]types.AttributeValue{copyItem(item)}
		}
	}
	return out, nil
}

func (f *fakeClient) Scan(ctx context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.scanErr != nil {
		return nil, f.scanErr
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}

	keys := t.sortedKeys()
	if in.ExclusiveStartKey != nil {
		after := t.itemKey(in.ExclusiveStartKey)
		keys = keys[sort.SearchStrings(keys, after):]
		if len(keys) > 0 && keys[0] == after {
			keys = keys[1:]
		}
	}

	out := &sdk.ScanOutput{}
	limit := len(keys)
	if in.Limit != nil && int(*in.Limit) < limit {
		limit = int(*in.Limit)
	}
	for _, k := range keys[:limit] {
		out.Count++
		if in.Select != types.SelectCount {
			out.Items = append(out.Items, copyItem(t.items[k]))
		}
	}
	if limit < len(keys) {
		last := t.items[keys[limit-1]]
		out.LastEvaluatedKey = map[string]types.AttributeValue{t.hashKey(): last[t.hashKey()]}
	}
	return out, nil
}

func (f *fakeClient) BatchWriteItem(_ context.Context, in *sdk.BatchWriteItemInput, _ ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batchCalls++
	out := &sdk.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for name, requests := range in.RequestItems {
		if len(requests) > maxBatchWrite {
			return nil, fmt.Errorf("too many requests: %d", len(requests))
		}
		t, err := f.table(aws.String(name))
		if err != nil {
			return nil, err
		}
		if f.unprocessedOnce && len(requests) > 0 {
			f.unprocessedOnce = false
			out.UnprocessedItems[name] = requests[len(requests)-1:]
			requests = requests[:len(requests)-1]
		}
		for _, r := range requests {
			delete(t.items, t.itemKey(r.DeleteRequest.Key))
		}
	}
	return out, nil
}

func (f *fakeClient) CreateTable(_ context.Context, in *sdk.CreateTableInput, _ ...func(*sdk.Options)) (*sdk.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists: " + name)}
	}
	f.created = append(f.created, in)
	f.tables[name] = &fakeTable{
		desc: types.TableDescription{
			TableName:            in.TableName,
			TableStatus:          types.TableStatusActive,
			KeySchema:            in.KeySchema,
			AttributeDefinitions: in.AttributeDefinitions,
		},
		items: make(map[string]map[string]types.AttributeValue),
	}
	return &sdk.CreateTableOutput{}, nil
}

func (f *fakeClient) DescribeTable(_ context.Context, in *sdk.DescribeTableInput, _ ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	desc := t.desc
	return &sdk.DescribeTableOutput{Table: &desc}, nil
}

func (f *fakeClient) DeleteTable(_ context.Context, in *sdk.DeleteTableInput, _ ...func(*sdk.Options)) (*sdk.DeleteTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.table(in.TableName); err != nil {
		return nil, err
	}
	delete(f.tables, aws.ToString(in.TableName))
	return &sdk.DeleteTableOutput{}, nil
}

func (f *fakeClient) UpdateTable(_ context.Context, in *sdk.UpdateTableInput, _ ...func(*sdk.Options)) (*sdk.UpdateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.table(in.TableName); err != nil {
		return nil, err
	}
	for _, u := range in.ReplicaUpdates {
		if u.Create != nil {
			f.replicas = append(f.replicas, aws.ToString(u.Create.RegionName))
		}
	}
	return &sdk.UpdateTableOutput{}, nil
}
