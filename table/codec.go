/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package table

import (
	"fmt"

	"github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// decode splits a stored row into its key and a proxy over the other columns.
func (t *Table[K]) decode(row storagemodels.Row) (K, *RowProxy[K], error) {
	k, ok := row.Key.(K)
	if !ok {
		var zero K
		return zero, nil, errors.NewValidationError(t.schema.PrimaryKey.Name,
			fmt.Sprintf("row key has type %T, want %T", row.Key, zero))
	}

	fields := make(map[string]any, len(row.Columns))
	for name, v := range row.Columns {
		if name == t.schema.PrimaryKey.Name || v == nil {
			continue
		}
		fields[name] = v
	}
	return k, newRowProxy(t, k, fields), nil
}

// encodeForInsert builds the row written for a new key. Unset fields are left out.
func (t *Table[K]) encodeForInsert(k K, fields map[string]any) storagemodels.Row {
	cols := make(map[string]any, len(fields))
	for name, v := range fields {
		if v != nil {
			cols[name] = v
		}
	}
	return storagemodels.Row{Key: k, Columns: cols}
}

// encodePositional maps values onto the schema's column order, primary key first.
func (t *Table[K]) encodePositional(values []any) (storagemodels.Row, error) {
	names := t.schema.ColumnNames()
	if len(values) != len(names) {
		return storagemodels.Row{}, errors.NewValidationError(t.schema.Name,
			fmt.Sprintf("positional insert needs %d values (%v), got %d", len(names), names, len(values)))
	}

	key, err := t.schema.CoerceKey(values[0])
	if err != nil {
		return storagemodels.Row{}, err
	}
	fields := make(map[string]any, len(values)-1)
	for i, name := range names[1:] {
		fields[name] = values[i+1]
	}
	coerced, err := t.schema.CoerceFields(fields)
	if err != nil {
		return storagemodels.Row{}, err
	}

	k, ok := key.(K)
	if !ok {
		return storagemodels.Row{}, errors.NewValidationError(t.schema.PrimaryKey.Name,
			fmt.Sprintf("key has type %T", key))
	}
	return t.encodeForInsert(k, coerced), nil
}
