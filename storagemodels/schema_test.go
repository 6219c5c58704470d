/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/authstore/errors"
)

func roleSchema() EntitySchema {
	return EntitySchema{
		Name:          "roles",
		PhysicalTable: "roles",
		PrimaryKey:    Text("role"),
		Columns:       []Column{Int("level")},
	}
}

func TestColumnCoerce(t *testing.T) {
	tests := []struct {
		name    string
		col     Column
		in      any
		want    any
		wantErr bool
	}{
		{name: "text_string", col: Text("a"), in: "x", want: "x"},
		{name: "text_bytes", col: Text("a"), in: []byte("x"), want: "x"},
		{name: "text_rejects_int", col: Text("a"), in: 3, wantErr: true},
		{name: "int_from_int", col: Int("a"), in: 10, want: int64(10)},
		{name: "int_from_float", col: Int("a"), in: float64(7), want: int64(7)},
		{name: "int_rejects_2_pow_63", col: Int("a"), in: float64(math.MaxInt64), wantErr: true},
		{name: "int_from_min_float", col: Int("a"), in: float64(math.MinInt64), want: int64(math.MinInt64)},
		{name: "int_from_large_float", col: Int("a"), in: float64(1 << 62), want: int64(1 << 62)},
		{name: "int_rejects_fraction", col: Int("a"), in: 7.5, wantErr: true},
		{name: "int_from_json_number", col: Int("a"), in: json.Number("42"), want: int64(42)},
		{name: "int_from_numeric_string", col: Int("a"), in: "100", want: int64(100)},
		{name: "int_rejects_word", col: Int("a"), in: "admin", wantErr: true},
		{name: "bool", col: Bool("a"), in: true, want: true},
		{name: "nil_passthrough", col: Int("a"), in: nil, want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.col.Coerce(tc.in)
			if tc.wantErr {
				assert.True(t, errors.IsValidationError(err), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEntitySchemaValidate(t *testing.T) {
	require.NoError(t, roleSchema().Validate())

	bad := roleSchema()
	bad.Columns = append(bad.Columns, Int("level"))
	assert.True(t, errors.IsValidationError(bad.Validate()))

	bad = roleSchema()
	bad.Columns = []Column{Text("role")}
	assert.True(t, errors.IsValidationError(bad.Validate()), "value column shadowing the key must be rejected")

	bad = roleSchema()
	bad.PrimaryKey = Bool("flag")
	assert.True(t, errors.IsValidationError(bad.Validate()))

	bad = roleSchema()
	bad.PhysicalTable = ""
	assert.True(t, errors.IsValidationError(bad.Validate()))
}

func TestEntitySchemaColumns(t *testing.T) {
	s := EntitySchema{
		Name:          "users",
		PhysicalTable: "users",
		PrimaryKey:    Text("username"),
		Columns:       []Column{Text("role"), Text("hash")},
	}
	assert.Equal(t, []string{"username", "role", "hash"}, s.ColumnNames())

	fields, err := s.CoerceFields(map[string]any{"role": "admin"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"role": "admin"}, fields)

	_, err = s.CoerceFields(map[string]any{"nope": "x"})
	assert.True(t, errors.IsValidationError(err))

	_, err = s.CoerceFields(map[string]any{"username": "bob"})
	assert.True(t, errors.IsValidationError(err))
}

func TestEntitySchemaCoerceRow(t *testing.T) {
	row, err := roleSchema().CoerceRow(Row{
		Key:     "admin",
		Columns: map[string]any{"level": json.Number("100"), "legacy": "dropped"},
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", row.Key)
	assert.Equal(t, map[string]any{"level": int64(100)}, row.Columns)

	_, err = roleSchema().CoerceRow(Row{Columns: map[string]any{}})
	assert.True(t, errors.IsValidationError(err), "a row without key is malformed")
}

func TestRowClone(t *testing.T) {
	r := Row{Key: "a", Columns: map[string]any{"x": "1"}}
	c := r.Clone()
	c.Columns["x"] = "2"
	assert.Equal(t, "1", r.Columns["x"])
}
