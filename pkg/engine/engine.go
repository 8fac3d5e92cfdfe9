// Package engine provides the Keyspace Store, the storage engine of jsonkv.
//
// It owns the in-memory keyspace and the store file on disk and guarantees
// that every mutation is durably persisted, by atomic replacement of the
// whole file, before it is reported as successful. All methods are safe for
// concurrent use.
//
// Basic usage:
//
//	opts := engine.DefaultOptions("./data")
//	db, err := engine.Open(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/sanonone/jsonkv/pkg/core"
	"github.com/sanonone/jsonkv/pkg/metrics"
	"github.com/sanonone/jsonkv/pkg/persistence"
)

// DefaultFilename is the name of the store file inside DataDir.
const DefaultFilename = "global.json"

// Options configures the Engine.
type Options struct {
	// DataDir is the directory holding the store file.
	// It is created automatically if it does not exist.
	DataDir string

	// Filename is the name of the store file (default: "global.json").
	Filename string

	// FileMode is the permission of the store file (default: 0644).
	FileMode os.FileMode

	// NoSync disables fsync after each write. Writes remain atomic but a
	// power loss may roll the store back to an earlier version.
	NoSync bool

	// MaxStoreBytes rejects mutations that would grow the store file beyond
	// this size. Zero means unlimited.
	MaxStoreBytes int64

	// Logger receives engine events. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns a standard configuration rooted at dataDir.
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir:  dataDir,
		Filename: DefaultFilename,
		FileMode: 0644,
	}
}

// Engine is the Keyspace Store.
//
// The committed keyspace is an immutable snapshot: readers load the pointer
// under a short read lock and never wait for disk I/O. Writers are serialized
// by a single-slot semaphore, build the next snapshot as a clone, persist it
// and only then publish it.
type Engine struct {
	mu       sync.RWMutex
	keyspace *core.Keyspace

	// writer is the single writer slot. Acquiring it honours ctx.
	writer *semaphore.Weighted

	file   *persistence.StoreFile
	opts   Options
	logger *slog.Logger

	storeBytes atomic.Int64
	closed     atomic.Bool
	closeOnce  sync.Once
}

// Open creates the Engine and loads the persisted keyspace. It is the Load
// step of the store and runs once per process.
//
// A missing store file yields an empty keyspace; the file is created by the
// first mutation. A store file that cannot be parsed yields a
// *CorruptStoreError and no Engine: the caller must not serve requests.
func Open(opts Options) (*Engine, error) {
	if opts.Filename == "" {
		opts.Filename = DefaultFilename
	}
	if opts.FileMode == 0 {
		opts.FileMode = 0644
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(opts.DataDir, opts.Filename)
	logger = logger.With("store", path)
	e := &Engine{
		writer: semaphore.NewWeighted(1),
		file: persistence.NewStoreFile(path, persistence.WriteOptions{
			Perm:     opts.FileMode,
			NoSync:   opts.NoSync,
			MaxBytes: opts.MaxStoreBytes,
			OnDirSyncError: func(dir string, err error) {
				logger.Warn("Directory fsync failed after store write", "dir", dir, "error", err)
			},
		}),
		opts:   opts,
		logger: logger,
	}

	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

// load reads the store file into memory.
// (Unexported: only Open calls it)
func (e *Engine) load() error {
	if n, err := e.file.RemoveStaleTemps(); err != nil {
		e.logger.Warn("Failed to remove stale temp files", "error", err)
	} else if n > 0 {
		e.logger.Info("Removed temp files from interrupted writes", "count", n)
	}

	ks, size, err := e.file.Load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		e.logger.Info("No store file found, starting with an empty keyspace")
		ks, size = core.NewKeyspace(), 0
	case errors.Is(err, persistence.ErrCorruptDocument):
		e.logger.Error("Store file is corrupt, refusing to start", "error", err)
		return &CorruptStoreError{Path: e.file.Path(), Err: err}
	case err != nil:
		return fmt.Errorf("failed to read store %s: %w", e.file.Path(), err)
	default:
		e.logger.Info("Store loaded", "keys", ks.Len(), "bytes", size)
	}

	e.keyspace = ks
	e.storeBytes.Store(size)
	metrics.StoreKeys.Set(float64(ks.Len()))
	metrics.StoreBytes.Set(float64(size))
	return nil
}

// Close waits for an in-flight mutation to finish and rejects later ones.
// Every successful mutation is already on disk, so there is nothing to flush.
// Reads keep working after Close.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		// Cannot fail with a background context.
		_ = e.writer.Acquire(context.Background(), 1)
		e.closed.Store(true)
		e.writer.Release(1)
		e.logger.Info("Engine closed")
	})
	return nil
}

// Path returns the location of the store file.
func (e *Engine) Path() string {
	return e.file.Path()
}

// Stats is a point-in-time summary of the store.
type Stats struct {
	Keys       int    `json:"keys"`
	StoreBytes int64  `json:"store_bytes"`
	Path       string `json:"path"`
}

// Stats returns the current key count and store file size.
func (e *Engine) Stats() Stats {
	return Stats{
		Keys:       e.current().Len(),
		StoreBytes: e.storeBytes.Load(),
		Path:       e.file.Path(),
	}
}

// current returns the committed keyspace. The result must not be mutated.
func (e *Engine) current() *core.Keyspace {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.keyspace
}

// publish makes ks the committed keyspace.
func (e *Engine) publish(ks *core.Keyspace) {
	e.mu.Lock()
	e.keyspace = ks
	e.mu.Unlock()
}
