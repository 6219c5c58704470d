/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package table

import (
	"cmp"
	"context"
	"fmt"

	"github.com/suparena/authstore/datastore"
	"github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// ScalarTable projects a single value column: Get and Set work on the column
// value instead of a row proxy. The other Table operations are inherited.
type ScalarTable[K cmp.Ordered, V any] struct {
	*Table[K]
	column storagemodels.Column
}

// NewScalar binds a schema to a driver, projecting column. V must match the
// column kind: string, int64 or bool.
func NewScalar[K cmp.Ordered, V any](driver datastore.Driver, schema storagemodels.EntitySchema, column string, opts ...Option) (*ScalarTable[K, V], error) {
	t, err := New[K](driver, schema, opts...)
	if err != nil {
		return nil, err
	}
	col, ok := schema.Column(column)
	if !ok {
		return nil, errors.NewValidationError(column, fmt.Sprintf("column is not declared in %s", schema.Name))
	}

	var zero V
	var want storagemodels.ColumnKind
	switch any(zero).(type) {
	case string:
		want = storagemodels.KindText
	case int64:
		want = storagemodels.KindInt
	case bool:
		want = storagemodels.KindBool
	default:
		return nil, errors.NewValidationError(column, fmt.Sprintf("value type %T is not supported", zero))
	}
	if col.Kind != want {
		return nil, errors.NewValidationError(column, fmt.Sprintf("value type %T does not match %s column", zero, col.Kind))
	}

	return &ScalarTable[K, V]{Table: t, column: col}, nil
}

// Column returns the projected column name.
func (s *ScalarTable[K, V]) Column() string { return s.column.Name }

// Get returns the column value for k. An unset column yields the zero value.
func (s *ScalarTable[K, V]) Get(ctx context.Context, k K) (V, error) {
	proxy, err := s.Table.Get(ctx, k)
	if err != nil {
		var zero V
		return zero, err
	}
	return s.project(proxy)
}

// Set upserts k with the column set to v.
func (s *ScalarTable[K, V]) Set(ctx context.Context, k K, v V) error {
	return s.Table.Set(ctx, k, map[string]any{s.column.Name: v})
}

// Items streams every (key, value) pair.
func (s *ScalarTable[K, V]) Items(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Item[K, V]] {
	return mapStream(ctx, s.driver, s.schema, opts, func(row storagemodels.Row) (storagemodels.Item[K, V], error) {
		k, proxy, err := s.decode(row)
		if err != nil {
			return storagemodels.Item[K, V]{}, err
		}
		v, err := s.project(proxy)
		return storagemodels.Item[K, V]{Key: k, Value: v}, err
	})
}

func (s *ScalarTable[K, V]) project(proxy *RowProxy[K]) (V, error) {
	var zero V
	raw, ok := proxy.Get(s.column.Name)
	if !ok || raw == nil {
		return zero, nil
	}
	v, ok := raw.(V)
	if !ok {
		return zero, errors.NewValidationError(s.column.Name, fmt.Sprintf("stored value has type %T", raw))
	}
	return v, nil
}
