package persistence

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrQuotaExceeded is returned when a write would grow a file beyond
// WriteOptions.MaxBytes. It behaves like a full disk: the bytes that still
// fit are written before the failure.
var ErrQuotaExceeded = errors.New("file size quota exceeded")

// WriteOptions controls how WriteFileAtomic produces the file.
type WriteOptions struct {
	// Perm is the mode of the final file. Zero means 0644.
	Perm os.FileMode

	// NoSync skips fsync of the temp file and of the parent directory.
	// Only meant for tests and throwaway stores.
	NoSync bool

	// MaxBytes caps the size of the written file. Zero disables the cap.
	MaxBytes int64

	// OnDirSyncError receives a failed parent directory fsync. The new
	// content is already in place when it is called.
	OnDirSyncError func(dir string, err error)
}

// tempPrefix returns the name prefix used for temp files of the given target.
// Temp files are hidden and live next to the target so the final rename never
// crosses a filesystem boundary.
func tempPrefix(target string) string {
	return "." + filepath.Base(target) + ".tmp-"
}

// WriteFileAtomic replaces path with the bytes produced by write.
//
// The content goes to a temp file in the same directory which is flushed to
// stable storage and then renamed over path. Readers of path observe either
// the previous file or the complete new one. On any error before the rename
// the temp file is removed and path is left untouched.
//
// It returns the size of the new file.
func WriteFileAtomic(path string, opts WriteOptions, write func(w io.Writer) error) (int64, error) {
	perm := opts.Perm
	if perm == 0 {
		perm = 0644
	}
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, tempPrefix(path)+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	abort := func(cause error) (int64, error) {
		var result error = cause
		if err := tmp.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			result = multierror.Append(result, fmt.Errorf("failed to close temp file: %w", err))
		}
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, fmt.Errorf("failed to remove temp file: %w", err))
		}
		return 0, result
	}

	qw := &quotaWriter{w: tmp, max: opts.MaxBytes}
	if err := write(qw); err != nil {
		return abort(fmt.Errorf("failed to write temp file: %w", err))
	}
	if !opts.NoSync {
		if err := tmp.Sync(); err != nil {
			return abort(fmt.Errorf("failed to sync temp file: %w", err))
		}
	}
	if err := tmp.Close(); err != nil {
		return abort(fmt.Errorf("failed to close temp file: %w", err))
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return abort(fmt.Errorf("failed to set file mode: %w", err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return abort(fmt.Errorf("failed to replace %s: %w", path, err))
	}

	// The rename is committed at this point. A failed directory sync is not
	// returned because the caller would treat the new content as absent.
	if !opts.NoSync {
		if err := syncDir(dir); err != nil && opts.OnDirSyncError != nil {
			opts.OnDirSyncError(dir, err)
		}
	}

	return qw.n, nil
}

// RemoveStaleTemps deletes temp files left behind next to path by a process
// that crashed between creating and renaming them. It returns how many files
// were removed.
func RemoveStaleTemps(path string) (int, error) {
	dir := filepath.Dir(path)
	prefix := tempPrefix(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	var (
		removed int
		result  error
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		removed++
	}
	return removed, result
}

// syncDir is a variable so tests can make it fail.
var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// quotaWriter counts written bytes and enforces an optional size cap.
type quotaWriter struct {
	w   io.Writer
	n   int64
	max int64
}

func (q *quotaWriter) Write(p []byte) (int, error) {
	if q.max > 0 && q.n+int64(len(p)) > q.max {
		room := q.max - q.n
		n, err := q.w.Write(p[:room])
		q.n += int64(n)
		if err != nil {
			return n, err
		}
		return n, ErrQuotaExceeded
	}
	n, err := q.w.Write(p)
	q.n += int64(n)
	return n, err
}
