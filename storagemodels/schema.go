/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/suparena/authstore/errors"
)

// ColumnKind is the storage type of a column.
type ColumnKind int

const (
	// KindText columns hold Go strings.
	KindText ColumnKind = iota + 1
	// KindInt columns hold Go int64 values.
	KindInt
	// KindBool columns hold Go bools.
	KindBool
)

func (k ColumnKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
}

// Column is a named, typed column of an entity schema.
type Column struct {
	Name string
	Kind ColumnKind
}

// Text declares a text column.
func Text(name string) Column { return Column{Name: name, Kind: KindText} }

// Int declares an integer column.
func Int(name string) Column { return Column{Name: name, Kind: KindInt} }

// Bool declares a boolean column.
func Bool(name string) Column { return Column{Name: name, Kind: KindBool} }

// Coerce converts v into the Go type of the column kind. nil is passed through.
func (c Column) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Kind {
	case KindText:
		switch tv := v.(type) {
		case string:
			return tv, nil
		case []byte:
			return string(tv), nil
		case fmt.Stringer:
			return tv.String(), nil
		}
	case KindInt:
		switch tv := v.(type) {
		case int:
			return int64(tv), nil
		case int8:
			return int64(tv), nil
		case int16:
			return int64(tv), nil
		case int32:
			return int64(tv), nil
		case int64:
			return tv, nil
		case uint8:
			return int64(tv), nil
		case uint16:
			return int64(tv), nil
		case uint32:
			return int64(tv), nil
		case float64:
			if tv == math.Trunc(tv) && tv >= math.MinInt64 && tv < math.MaxInt64 {
				return int64(tv), nil
			}
		case json.Number:
			if i, err := tv.Int64(); err == nil {
				return i, nil
			}
		case string:
			if i, err := strconv.ParseInt(tv, 10, 64); err == nil {
				return i, nil
			}
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, errors.NewValidationError(c.Name, fmt.Sprintf("cannot store %T in %s column", v, c.Kind))
}

// EntitySchema is the immutable description of one entity table.
type EntitySchema struct {
	// Name is the logical entity name (e.g. "users").
	Name string
	// PhysicalTable is the table name inside the keyspace.
	PhysicalTable string
	// PrimaryKey is the key column; its value is the mapping key.
	PrimaryKey Column
	// Columns are the value columns in declaration order.
	Columns []Column
}

// Validate checks the schema is usable by a table proxy.
func (s EntitySchema) Validate() error {
	if s.Name == "" {
		return errors.NewValidationError("name", "schema name is required")
	}
	if s.PhysicalTable == "" {
		return errors.NewValidationError("physicalTable", fmt.Sprintf("schema %s has no physical table", s.Name))
	}
	if s.PrimaryKey.Name == "" {
		return errors.NewValidationError("primaryKey", fmt.Sprintf("schema %s has no primary key", s.Name))
	}
	if s.PrimaryKey.Kind != KindText && s.PrimaryKey.Kind != KindInt {
		return errors.NewValidationError(s.PrimaryKey.Name, fmt.Sprintf("primary key kind %s is not supported", s.PrimaryKey.Kind))
	}
	seen := map[string]bool{s.PrimaryKey.Name: true}
	for _, c := range s.Columns {
		if c.Name == "" {
			return errors.NewValidationError("columns", fmt.Sprintf("schema %s has an unnamed column", s.Name))
		}
		if seen[c.Name] {
			return errors.NewValidationError(c.Name, fmt.Sprintf("duplicate column in schema %s", s.Name))
		}
		switch c.Kind {
		case KindText, KindInt, KindBool:
		default:
			return errors.NewValidationError(c.Name, fmt.Sprintf("unknown column kind %s", c.Kind))
		}
		seen[c.Name] = true
	}
	return nil
}

// Column returns the value column with the given name.
func (s EntitySchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the primary key name followed by the value columns in order.
func (s EntitySchema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns)+1)
	names = append(names, s.PrimaryKey.Name)
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	return names
}

// CoerceKey converts key into the primary-key column type.
func (s EntitySchema) CoerceKey(key any) (any, error) {
	if key == nil {
		return nil, errors.NewValidationError(s.PrimaryKey.Name, "primary key is required")
	}
	return s.PrimaryKey.Coerce(key)
}

// CoerceFields validates every field against the value columns and returns a
// new map holding coerced values.
func (s EntitySchema) CoerceFields(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		if name == s.PrimaryKey.Name {
			return nil, errors.NewValidationError(name, "primary key cannot be assigned as a field")
		}
		col, ok := s.Column(name)
		if !ok {
			return nil, errors.NewValidationError(name, fmt.Sprintf("unknown column for %s", s.Name))
		}
		cv, err := col.Coerce(v)
		if err != nil {
			return nil, err
		}
		out[name] = cv
	}
	return out, nil
}

// CoerceRow normalises a row read back from storage. Unknown columns are dropped.
func (s EntitySchema) CoerceRow(row Row) (Row, error) {
	key, err := s.CoerceKey(row.Key)
	if err != nil {
		return Row{}, err
	}
	cols := make(map[string]any, len(row.Columns))
	for name, v := range row.Columns {
		col, ok := s.Column(name)
		if !ok {
			continue
		}
		cv, err := col.Coerce(v)
		if err != nil {
			return Row{}, err
		}
		cols[name] = cv
	}
	return Row{Key: key, Columns: cols}, nil
}
