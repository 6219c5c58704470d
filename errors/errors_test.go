/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKeyNotFoundError(t *testing.T) {
	err := NewKeyNotFoundError("users", "alice")

	expected := `users: key "alice" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrKeyNotFound) {
		t.Error("KeyNotFoundError should match ErrKeyNotFound")
	}

	if !IsKeyNotFound(err) {
		t.Error("IsKeyNotFound should return true for KeyNotFoundError")
	}

	// Non-string keys are rendered with fmt.Sprint
	err = NewKeyNotFoundError("counters", int64(42))
	if err.Error() != `counters: key "42" not found` {
		t.Errorf("unexpected message for int key: %q", err.Error())
	}
}

func TestAlreadyExistsError(t *testing.T) {
	err := NewAlreadyExistsError("schema", "users")

	expected := `schema with key "users" already exists`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !IsAlreadyExists(err) {
		t.Error("IsAlreadyExists should return true for AlreadyExistsError")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "with field",
			field:    "email_addr",
			message:  "invalid format",
			expected: `validation failed for field "email_addr": invalid format`,
		},
		{
			name:     "without field",
			field:    "",
			message:  "missing primary key",
			expected: "validation failed: missing primary key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}

			if !IsValidationError(err) {
				t.Error("IsValidationError should return true for ValidationError")
			}
		})
	}
}

func TestConditionFailedError(t *testing.T) {
	err := NewConditionFailedError("update", "attribute_exists(#pk)")

	expected := "condition check failed for update operation: attribute_exists(#pk)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !IsConditionFailed(err) {
		t.Error("IsConditionFailed should return true for ConditionFailedError")
	}
}

func TestStorageErrorsUnwrap(t *testing.T) {
	unavailable := NewStorageUnavailableError("get", "users", context.DeadlineExceeded)
	if !IsStorageUnavailable(unavailable) {
		t.Error("IsStorageUnavailable should return true")
	}
	if !errors.Is(unavailable, context.DeadlineExceeded) {
		t.Error("StorageUnavailableError should unwrap to its cause")
	}

	cause := errors.New("throughput exceeded")
	write := NewStorageWriteError("update", "users", "alice", cause)
	if !IsStorageWrite(write) {
		t.Error("IsStorageWrite should return true")
	}
	if !errors.Is(write, cause) {
		t.Error("StorageWriteError should unwrap to its cause")
	}
	expected := `update on users key "alice" failed: throughput exceeded`
	if write.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, write.Error())
	}

	schema := NewSchemaInitializationError("roles", write)
	if !IsSchemaInitialization(schema) {
		t.Error("IsSchemaInitialization should return true")
	}
	if !IsStorageWrite(schema) {
		t.Error("SchemaInitializationError should expose the wrapped write error")
	}
}

func TestConfigurationErrors(t *testing.T) {
	err := NewUnsupportedReplicationPolicyError("LocalQuorum", "")
	if !IsUnsupportedReplicationPolicy(err) {
		t.Error("IsUnsupportedReplicationPolicy should return true")
	}
	if err.Error() != `unsupported replication policy "LocalQuorum"` {
		t.Errorf("unexpected message %q", err.Error())
	}

	err = NewUnsupportedBackendError("")
	if !IsUnsupportedBackend(err) {
		t.Error("IsUnsupportedBackend should return true")
	}
	if err.Error() != "no storage backend provided" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestErrorWrapping(t *testing.T) {
	original := NewKeyNotFoundError("users", "123")
	wrapped := fmt.Errorf("lookup failed: %w", original)

	if !errors.Is(wrapped, ErrKeyNotFound) {
		t.Error("Wrapped KeyNotFoundError should still match ErrKeyNotFound")
	}

	var knf *KeyNotFoundError
	if !errors.As(wrapped, &knf) || knf.Key != "123" {
		t.Errorf("errors.As should recover the key, got %+v", knf)
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrKeyNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrConditionFailed,
		ErrStorageUnavailable,
		ErrStorageWrite,
		ErrSchemaInitialization,
		ErrUnsupportedReplicationPolicy,
		ErrUnsupportedBackend,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}
