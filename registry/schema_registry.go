/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"sync"

	"github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// SchemaRegistry holds the entity schemas of one backend, keyed by entity name.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]storagemodels.EntitySchema
	order   []string
}

// NewSchemaRegistry creates an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		schemas: make(map[string]storagemodels.EntitySchema),
	}
}

// Register validates and adds a schema. Names and physical tables must be unique.
func (r *SchemaRegistry) Register(schema storagemodels.EntitySchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.Name]; exists {
		return errors.NewAlreadyExistsError("schema", schema.Name)
	}
	for _, s := range r.schemas {
		if s.PhysicalTable == schema.PhysicalTable {
			return errors.NewAlreadyExistsError("table", schema.PhysicalTable)
		}
	}
	r.schemas[schema.Name] = schema
	r.order = append(r.order, schema.Name)
	return nil
}

// Get returns the schema registered under name.
func (r *SchemaRegistry) Get(name string) (storagemodels.EntitySchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// All returns the schemas in registration order.
func (r *SchemaRegistry) All() []storagemodels.EntitySchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]storagemodels.EntitySchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.schemas[name])
	}
	return out
}

// Len returns the number of registered schemas.
func (r *SchemaRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
