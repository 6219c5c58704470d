/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// Row is a storage-level record: one primary-key value plus named column values.
// The primary-key column never appears in Columns.
type Row struct {
	// Key is the primary-key value, already coerced to the key column's Go type.
	Key any
	// Columns holds the value columns present on the row. A nil value means unset.
	Columns map[string]any
}

// Clone returns a copy of the row whose Columns map can be mutated freely.
func (r Row) Clone() Row {
	cols := make(map[string]any, len(r.Columns))
	for k, v := range r.Columns {
		cols[k] = v
	}
	return Row{Key: r.Key, Columns: cols}
}

// Item pairs a key with its decoded value during iteration.
type Item[K any, V any] struct {
	Key   K
	Value V
}
