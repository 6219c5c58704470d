/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrKeyNotFound is returned when a lookup or delete targets an absent key
	ErrKeyNotFound = errors.New("key not found")

	// ErrAlreadyExists is returned when registering something that already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write is rejected
	ErrConditionFailed = errors.New("condition check failed")

	// ErrStorageUnavailable is returned when the storage driver cannot be reached
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorageWrite is returned when a write is rejected or partially applied
	ErrStorageWrite = errors.New("storage write failed")

	// ErrSchemaInitialization is returned when keyspace or table setup fails
	ErrSchemaInitialization = errors.New("schema initialization failed")

	// ErrUnsupportedReplicationPolicy is returned for a replication policy a driver cannot apply
	ErrUnsupportedReplicationPolicy = errors.New("unsupported replication policy")

	// ErrUnsupportedBackend is returned when no usable storage driver is available
	ErrUnsupportedBackend = errors.New("unsupported backend")
)

// KeyNotFoundError represents a lookup or delete on a key that has no row
type KeyNotFoundError struct {
	Table string
	Key   any
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("%s: key %q not found", e.Table, fmt.Sprint(e.Key))
}

func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// AlreadyExistsError represents an attempt to register something twice
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// StorageUnavailableError wraps a connection, driver, timeout or cancellation failure.
// Callers may retry with backoff; this layer never retries on its own.
type StorageUnavailableError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageUnavailableError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("storage unavailable during %s on %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}

// StorageWriteError wraps a write that storage rejected or only partially applied.
// It is not retried automatically since partial updates are not idempotent.
type StorageWriteError struct {
	Op    string
	Table string
	Key   any
	Err   error
}

func (e *StorageWriteError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("%s on %s key %q failed: %v", e.Op, e.Table, fmt.Sprint(e.Key), e.Err)
	}
	return fmt.Sprintf("%s on %s failed: %v", e.Op, e.Table, e.Err)
}

func (e *StorageWriteError) Is(target error) bool {
	return target == ErrStorageWrite
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}

// SchemaInitializationError is fatal at startup
type SchemaInitializationError struct {
	Table string
	Err   error
}

func (e *SchemaInitializationError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("schema initialization failed for %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("schema initialization failed: %v", e.Err)
}

func (e *SchemaInitializationError) Is(target error) bool {
	return target == ErrSchemaInitialization
}

func (e *SchemaInitializationError) Unwrap() error {
	return e.Err
}

// UnsupportedReplicationPolicyError is a configuration error, fatal at startup
type UnsupportedReplicationPolicyError struct {
	Policy string
	Reason string
}

func (e *UnsupportedReplicationPolicyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported replication policy %q: %s", e.Policy, e.Reason)
	}
	return fmt.Sprintf("unsupported replication policy %q", e.Policy)
}

func (e *UnsupportedReplicationPolicyError) Is(target error) bool {
	return target == ErrUnsupportedReplicationPolicy
}

// UnsupportedBackendError is returned at construction when the storage driver is missing or unknown
type UnsupportedBackendError struct {
	Backend string
}

func (e *UnsupportedBackendError) Error() string {
	if e.Backend == "" {
		return "no storage backend provided"
	}
	return fmt.Sprintf("unsupported storage backend %q", e.Backend)
}

func (e *UnsupportedBackendError) Is(target error) bool {
	return target == ErrUnsupportedBackend
}

// Helper functions for creating errors

// NewKeyNotFoundError creates a new KeyNotFoundError
func NewKeyNotFoundError(table string, key any) error {
	return &KeyNotFoundError{Table: table, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewStorageUnavailableError creates a new StorageUnavailableError
func NewStorageUnavailableError(op, table string, err error) error {
	return &StorageUnavailableError{Op: op, Table: table, Err: err}
}

// NewStorageWriteError creates a new StorageWriteError
func NewStorageWriteError(op, table string, key any, err error) error {
	return &StorageWriteError{Op: op, Table: table, Key: key, Err: err}
}

// NewSchemaInitializationError creates a new SchemaInitializationError
func NewSchemaInitializationError(table string, err error) error {
	return &SchemaInitializationError{Table: table, Err: err}
}

// NewUnsupportedReplicationPolicyError creates a new UnsupportedReplicationPolicyError
func NewUnsupportedReplicationPolicyError(policy, reason string) error {
	return &UnsupportedReplicationPolicyError{Policy: policy, Reason: reason}
}

// NewUnsupportedBackendError creates a new UnsupportedBackendError
func NewUnsupportedBackendError(backend string) error {
	return &UnsupportedBackendError{Backend: backend}
}

// IsKeyNotFound checks if an error is a key not found error
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsStorageUnavailable checks if an error is a storage unavailable error
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsStorageWrite checks if an error is a storage write error
func IsStorageWrite(err error) bool {
	return errors.Is(err, ErrStorageWrite)
}

// IsSchemaInitialization checks if an error is a schema initialization error
func IsSchemaInitialization(err error) bool {
	return errors.Is(err, ErrSchemaInitialization)
}

// IsUnsupportedReplicationPolicy checks if an error is an unsupported replication policy error
func IsUnsupportedReplicationPolicy(err error) bool {
	return errors.Is(err, ErrUnsupportedReplicationPolicy)
}

// IsUnsupportedBackend checks if an error is an unsupported backend error
func IsUnsupportedBackend(err error) bool {
	return errors.Is(err, ErrUnsupportedBackend)
}
