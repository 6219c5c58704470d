/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Client is the subset of the DynamoDB API used by the driver. *dynamodb.Client
// satisfies it; tests substitute an in-memory fake.
type Client interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
	CreateTable(ctx context.Context, params *sdk.CreateTableInput, optFns ...func(*sdk.Options)) (*sdk.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	DeleteTable(ctx context.Context, params *sdk.DeleteTableInput, optFns ...func(*sdk.Options)) (*sdk.DeleteTableOutput, error)
	UpdateTable(ctx context.Context, params *sdk.UpdateTableInput, optFns ...func(*sdk.Options)) (*sdk.UpdateTableOutput, error)
}

var _ Client = (*sdk.Client)(nil)

// ClientOptions selects the region and credentials of a DynamoDB client.
// Empty keys fall back to the default AWS credential chain.
type ClientOptions struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the service endpoint, e.g. http://localhost:8000 for DynamoDB Local.
	Endpoint string
}

// NewClient initializes a DynamoDB client.
func NewClient(ctx context.Context, opts ClientOptions) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	slog.Debug("DynamoDB client initialized", "region", opts.Region, "endpoint", opts.Endpoint)
	return client, nil
}
