// This file implements the record operations of the Engine. Reads are served
// from the committed in-memory keyspace; mutations are persisted with an
// atomic file replacement before they become visible.

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/sanonone/jsonkv/pkg/core"
	"github.com/sanonone/jsonkv/pkg/metrics"
)

// Get returns the value stored for key, or ErrNotFound.
// A key holding a falsy value (0, false, "", null) is found like any other.
func (e *Engine) Get(key string) (json.RawMessage, error) {
	value, ok := e.current().Get(key)
	if !ok {
		metrics.StoreOperationsTotal.WithLabelValues("get", "not_found").Inc()
		return nil, ErrNotFound
	}
	metrics.StoreOperationsTotal.WithLabelValues("get", "ok").Inc()
	return slices.Clone(value), nil
}

// Has reports whether key is present.
func (e *Engine) Has(key string) bool {
	return e.current().Has(key)
}

// Keys returns the sorted keys starting with prefix ("" for all keys).
func (e *Engine) Keys(prefix string) []string {
	return e.current().Keys(prefix)
}

// Len returns the number of committed keys.
func (e *Engine) Len() int {
	return e.current().Len()
}

// Put stores value, given as serialized JSON text, under key. The value may be
// any JSON value, not only an object. Malformed JSON or an empty key yields
// ErrInvalidValue before storage is touched.
//
// Put returns only after the store file has been atomically replaced. If that
// fails it returns a *PersistenceError and the previous value stays visible.
func (e *Engine) Put(ctx context.Context, key string, value json.RawMessage) error {
	if err := core.ValidateKey(key); err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("put", "invalid").Inc()
		return err
	}
	compact, err := core.ParseValue(value)
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("put", "invalid").Inc()
		return err
	}
	return e.mutate(ctx, "put", key, func(ks *core.Keyspace) error {
		ks.Set(key, compact)
		return nil
	})
}

// PutValue encodes an arbitrary Go value as JSON and stores it like Put.
func (e *Engine) PutValue(ctx context.Context, key string, v any) error {
	value, err := core.MarshalValue(v)
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("put", "invalid").Inc()
		return err
	}
	return e.Put(ctx, key, value)
}

// Delete removes key. It returns ErrNotFound if the key is absent, in which
// case nothing is written. Durability and rollback follow Put.
func (e *Engine) Delete(ctx context.Context, key string) error {
	return e.mutate(ctx, "delete", key, func(ks *core.Keyspace) error {
		if !ks.Delete(key) {
			return ErrNotFound
		}
		return nil
	})
}

// mutate runs the read-modify-persist sequence under the writer slot.
//
// ctx is honoured while waiting for the slot. Once the slot is held and ctx
// has been checked one last time, the mutation runs to completion: the temp
// file is either renamed into place or removed, never abandoned.
func (e *Engine) mutate(ctx context.Context, op, key string, apply func(ks *core.Keyspace) error) (err error) {
	defer func() {
		metrics.StoreOperationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	}()

	if e.closed.Load() {
		return ErrClosed
	}
	if err := e.writer.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.writer.Release(1)

	if e.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	next := e.current().Clone()
	if err := apply(next); err != nil {
		return err
	}

	start := time.Now()
	size, err := e.file.Save(next)
	elapsed := time.Since(start)
	if err != nil {
		// next is dropped; the committed keyspace still matches the file.
		e.logger.Error("Store write failed, mutation discarded",
			"op", op,
			"key", key,
			"error", err,
		)
		return &PersistenceError{Op: op, Key: key, Err: err}
	}

	e.publish(next)
	e.storeBytes.Store(size)

	metrics.PersistDuration.Observe(elapsed.Seconds())
	metrics.StoreKeys.Set(float64(next.Len()))
	metrics.StoreBytes.Set(float64(size))

	e.logger.Debug("Store committed",
		"op", op,
		"key", key,
		"keys", next.Len(),
		"bytes", size,
		"duration", elapsed.String(),
	)
	return nil
}

func resultLabel(err error) string {
	var perr *PersistenceError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.As(err, &perr):
		return "persistence_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
