/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pebble

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/suparena/authstore/storagemodels"
)

// ScanAll streams the table in key order, one page per read lock so that
// consumers can write to the store while draining the channel.
func (d *Driver) ScanAll(ctx context.Context, schema storagemodels.EntitySchema, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Row] {
	options := storagemodels.ApplyStreamOptions(opts...)
	resultCh := storagemodels.NewResultChannel[storagemodels.Row](options)

	go d.scanWorker(ctx, schema, options, resultCh)

	return resultCh
}

func (d *Driver) scanWorker(
	ctx context.Context,
	schema storagemodels.EntitySchema,
	options storagemodels.StreamOptions,
	resultCh chan storagemodels.StreamResult[storagemodels.Row],
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	startTime := time.Now()

	prefix := rowPrefix(d.keyspace, schema.PhysicalTable)
	end := prefixEnd(prefix)
	start := prefix

	for {
		page, next, err := d.readPage(ctx, schema, start, end, int(options.PageSize))
		if err != nil {
			storagemodels.Finish(resultCh, storagemodels.StreamResult[storagemodels.Row]{
				Error: err,
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			})
			return
		}
		pageNumber++

		for _, row := range page {
			result := storagemodels.StreamResult[storagemodels.Row]{
				Item: row,
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			}
			if !storagemodels.Send(ctx, resultCh, result) {
				storagemodels.Finish(resultCh, storagemodels.Canceled[storagemodels.Row](ctx, "scan", schema.PhysicalTable, result.Meta))
				return
			}
			itemIndex++
		}

		if options.ProgressHandler != nil {
			options.ProgressHandler(storagemodels.NewProgress(itemIndex, pageNumber, startTime))
		}

		if next == nil {
			return
		}
		start = next
	}
}

// readPage returns up to limit rows from [start, end) and the key to resume
// from, or nil when the range is exhausted.
func (d *Driver) readPage(ctx context.Context, schema storagemodels.EntitySchema, start, end []byte, limit int) ([]storagemodels.Row, []byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.checkTable(ctx, "scan", schema); err != nil {
		return nil, nil, err
	}
	iter, err := d.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, nil, d.readErr("scan", schema.PhysicalTable, err)
	}
	defer iter.Close()

	rows := make([]storagemodels.Row, 0, limit)
	var last []byte
	for valid := iter.First(); valid && len(rows) < limit; valid = iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, nil, d.readErr("scan", schema.PhysicalTable, err)
		}
		row, err := decodeRow(schema, value)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
		last = append(last[:0], iter.Key()...)
	}
	if err := iter.Error(); err != nil {
		return nil, nil, d.readErr("scan", schema.PhysicalTable, err)
	}
	if len(rows) < limit {
		return rows, nil, nil
	}
	return rows, successor(last), nil
}
