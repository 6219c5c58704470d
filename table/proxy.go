/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package table

import (
	"cmp"
	"context"
	"sort"
	"sync"
)

// Mapping is the read/write view of one row's value columns.
type Mapping interface {
	Get(field string) (any, bool)
	Set(ctx context.Context, field string, value any) error
	Fields() map[string]any
	Len() int
	Names() []string
}

var _ Mapping = (*RowProxy[string])(nil)

// RowProxy is a snapshot of one row that writes field assignments through
// to storage. A proxy never refreshes itself; Get the key again to observe
// other writers.
type RowProxy[K cmp.Ordered] struct {
	table *Table[K]
	key   K

	mu     sync.RWMutex
	fields map[string]any
}

func newRowProxy[K cmp.Ordered](t *Table[K], k K, fields map[string]any) *RowProxy[K] {
	return &RowProxy[K]{table: t, key: k, fields: fields}
}

// Key returns the primary-key value the proxy is bound to.
func (p *RowProxy[K]) Key() K { return p.key }

// Get returns the snapshot value of field.
func (p *RowProxy[K]) Get(field string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.fields[field]
	return v, ok
}

// Set writes one field to storage, then to the snapshot. If the write fails
// the snapshot is unchanged. A nil value unsets the column.
func (p *RowProxy[K]) Set(ctx context.Context, field string, value any) error {
	coerced, err := p.table.schema.CoerceFields(map[string]any{field: value})
	if err != nil {
		return err
	}

	unlock := p.table.locks.lock(p.key)
	defer unlock()

	if err := p.table.driver.UpdateFields(ctx, p.table.schema, p.key, coerced); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if v := coerced[field]; v != nil {
		p.fields[field] = v
	} else {
		delete(p.fields, field)
	}
	return nil
}

// Fields returns a copy of the snapshot.
func (p *RowProxy[K]) Fields() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.fields))
	for k, v := range p.fields {
		out[k] = v
	}
	return out
}

// Len returns the number of set fields.
func (p *RowProxy[K]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.fields)
}

// Names returns the set field names in sorted order.
func (p *RowProxy[K]) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.fields))
	for name := range p.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
