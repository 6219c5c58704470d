/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"context"
	"time"

	"github.com/suparena/authstore/errors"
)

// StreamResult represents a single item in a stream with metadata
type StreamResult[T any] struct {
	Item  T          // The decoded item
	Error error      // Scan error; the stream ends after an error result
	Meta  StreamMeta // Metadata about this item
}

// StreamMeta contains metadata about a streamed item
type StreamMeta struct {
	Index      int64     // Item index in stream (0-based)
	PageNumber int       // Storage page number (1-based)
	Timestamp  time.Time // When item was retrieved
}

// StreamOptions configures streaming behavior
type StreamOptions struct {
	BufferSize      int                  // Channel buffer size (default: 100)
	PageSize        int32                // Rows per storage page (default: 100)
	ProgressHandler func(StreamProgress) // Optional progress callback, called after each page
}

// StreamProgress tracks streaming progress
type StreamProgress struct {
	ItemsProcessed int64     // Total items processed
	PagesProcessed int       // Total pages processed
	StartTime      time.Time // When streaming started
	CurrentRate    float64   // Items per second
}

// StreamOption is a functional option for configuring streaming
type StreamOption func(*StreamOptions)

// DefaultStreamOptions returns default streaming options
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize: 100,
		PageSize:   100,
	}
}

// ApplyStreamOptions returns the defaults with opts applied in order.
func ApplyStreamOptions(opts ...StreamOption) StreamOptions {
	options := DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.BufferSize < 0 {
		options.BufferSize = 0
	}
	if options.PageSize <= 0 {
		options.PageSize = DefaultStreamOptions().PageSize
	}
	return options
}

// WithBufferSize sets the channel buffer size
func WithBufferSize(size int) StreamOption {
	return func(opts *StreamOptions) {
		opts.BufferSize = size
	}
}

// WithPageSize sets the storage page size
func WithPageSize(size int32) StreamOption {
	return func(opts *StreamOptions) {
		opts.PageSize = size
	}
}

// WithProgressHandler sets a progress callback
func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(opts *StreamOptions) {
		opts.ProgressHandler = handler
	}
}

// NewProgress computes a progress snapshot.
func NewProgress(items int64, pages int, start time.Time) StreamProgress {
	p := StreamProgress{
		ItemsProcessed: items,
		PagesProcessed: pages,
		StartTime:      start,
	}
	if elapsed := time.Since(start).Seconds(); elapsed > 0 {
		p.CurrentRate = float64(items) / elapsed
	}
	return p
}

// NewResultChannel returns a stream channel sized for options plus one slot
// for the final result.
func NewResultChannel[T any](options StreamOptions) chan StreamResult[T] {
	return make(chan StreamResult[T], options.BufferSize+1)
}

// Send delivers r unless ctx is done first. A done context takes priority
// over a ready receiver.
func Send[T any](ctx context.Context, ch chan StreamResult[T], r StreamResult[T]) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case ch <- r:
		return true
	}
}

// Finish delivers r as the last result on ch without blocking. When the
// buffer is full one undelivered result is discarded to make room, so an
// abandoned stream never blocks its producer. ch must come from
// NewResultChannel and have no other sender.
func Finish[T any](ch chan StreamResult[T], r StreamResult[T]) {
	for {
		select {
		case ch <- r:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Canceled builds the final result of a stream whose context ended early.
func Canceled[T any](ctx context.Context, op, table string, meta StreamMeta) StreamResult[T] {
	return StreamResult[T]{
		Error: errors.NewStorageUnavailableError(op, table, ctx.Err()),
		Meta:  meta,
	}
}
