/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	autherrors "github.com/suparena/authstore/errors"
)

// unavailableCodes are API error codes that mean the service, not the
// request, is at fault.
var unavailableCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"ThrottlingException":                    true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
	"ResourceNotFoundException":              true,
	"ResourceInUseException":                 true,
	"UnrecognizedClientException":            true,
}

// classifyRead maps a failed read to StorageUnavailableError.
func classifyRead(op, table string, err error) error {
	return autherrors.NewStorageUnavailableError(op, table, err)
}

// classifyWrite maps a failed write: service or transport failures become
// StorageUnavailableError, a request the service rejected becomes StorageWriteError.
func classifyWrite(op, table string, key any, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return autherrors.NewStorageUnavailableError(op, table, err)
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return autherrors.NewStorageUnavailableError(op, table, err)
	}
	if unavailableCodes[apiErr.ErrorCode()] || apiErr.ErrorFault() == smithy.FaultServer {
		return autherrors.NewStorageUnavailableError(op, table, err)
	}
	return autherrors.NewStorageWriteError(op, table, key, err)
}

func isTableMissing(err error) bool {
	var rnf *types.ResourceNotFoundException
	return errors.As(err, &rnf)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var (
		pte *types.ProvisionedThroughputExceededException
		rle *types.RequestLimitExceeded
		ise *types.InternalServerError
	)
	if errors.As(err, &pte) || errors.As(err, &rle) || errors.As(err, &ise) {
		return true
	}

	// Check for AWS SDK retryable errors
	var retryable interface{ RetryableError() bool }
	if errors.As(err, &retryable) {
		return retryable.RetryableError()
	}

	return false
}
