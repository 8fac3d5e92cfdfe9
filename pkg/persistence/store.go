// Package persistence implements the durable, human-readable representation of
// the keyspace: one JSON document on disk, replaced atomically on every save.
package persistence

import (
	"fmt"
	"io"
	"os"

	"github.com/sanonone/jsonkv/pkg/core"
)

// StoreFile is the single file that holds the persisted keyspace.
// It does not synchronize callers; the engine serializes Save calls.
type StoreFile struct {
	path string
	opts WriteOptions
}

// NewStoreFile returns a StoreFile for path. The file is not touched.
func NewStoreFile(path string, opts WriteOptions) *StoreFile {
	return &StoreFile{path: path, opts: opts}
}

// Path returns the canonical location of the store.
func (f *StoreFile) Path() string {
	return f.path
}

// Load reads and decodes the store. If the file does not exist the returned
// error satisfies errors.Is(err, fs.ErrNotExist). A file that exists but
// cannot be parsed yields an error wrapping ErrCorruptDocument.
func (f *StoreFile) Load() (*core.Keyspace, int64, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat store: %w", err)
	}

	ks, err := DecodeKeyspace(file)
	if err != nil {
		return nil, 0, err
	}
	return ks, info.Size(), nil
}

// Save atomically replaces the store with the encoding of ks and returns the
// new file size.
func (f *StoreFile) Save(ks *core.Keyspace) (int64, error) {
	return WriteFileAtomic(f.path, f.opts, func(w io.Writer) error {
		return EncodeKeyspace(w, ks)
	})
}

// RemoveStaleTemps clears temp files from interrupted saves.
func (f *StoreFile) RemoveStaleTemps() (int, error) {
	return RemoveStaleTemps(f.path)
}
