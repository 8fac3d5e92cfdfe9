package persistence

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "global.json")

	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := WriteFileAtomic(path, WriteOptions{}, func(w io.Writer) error {
		_, err := io.WriteString(w, "new content")
		return err
	})
	if err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if n != int64(len("new content")) {
		t.Errorf("WriteFileAtomic() size = %d", n)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new content" {
		t.Errorf("file content = %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("file mode = %v, want 0644", info.Mode().Perm())
	}

	if names := listDir(t, dir); len(names) != 1 {
		t.Errorf("directory contains %v, want only the store", names)
	}
}

func TestWriteFileAtomicFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "global.json")

	if err := os.WriteFile(path, []byte(`{"a": 1}`), 0644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	_, err := WriteFileAtomic(path, WriteOptions{NoSync: true}, func(w io.Writer) error {
		// Half a document, then the failure.
		if _, err := io.WriteString(w, `{"a": 1, "b": `); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteFileAtomic() error = %v, want boom", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a": 1}` {
		t.Errorf("original file modified: %q", data)
	}
	if names := listDir(t, dir); len(names) != 1 {
		t.Errorf("temp file left behind: %v", names)
	}
}

func TestWriteFileAtomicQuota(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "global.json")

	_, err := WriteFileAtomic(path, WriteOptions{NoSync: true, MaxBytes: 8}, func(w io.Writer) error {
		_, err := io.WriteString(w, strings.Repeat("x", 32))
		return err
	})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("WriteFileAtomic() error = %v, want ErrQuotaExceeded", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("store created despite failure: %v", err)
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Errorf("temp file left behind: %v", names)
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "global.json")
	_, err := WriteFileAtomic(path, WriteOptions{}, func(w io.Writer) error { return nil })
	if err == nil {
		t.Fatal("WriteFileAtomic() into missing directory succeeded")
	}
}

func TestRemoveStaleTemps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "global.json")

	for _, name := range []string{".global.json.tmp-123", ".global.json.tmp-456", "other.json", ".other.json.tmp-1"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := RemoveStaleTemps(path)
	if err != nil {
		t.Fatalf("RemoveStaleTemps() error = %v", err)
	}
	if n != 2 {
		t.Errorf("RemoveStaleTemps() removed %d files, want 2", n)
	}
	names := listDir(t, dir)
	if len(names) != 2 {
		t.Errorf("remaining files = %v", names)
	}
}

func TestStoreFileSaveLoad(t *testing.T) {
	dir := t.TempDir()
	sf := NewStoreFile(filepath.Join(dir, "global.json"), WriteOptions{NoSync: true})

	if _, _, err := sf.Load(); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load() on missing file error = %v, want ErrNotExist", err)
	}

	ks := keyspaceOf(t, map[string]string{"alice": `{"score":5}`})
	size, err := sf.Save(ks)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, loadedSize, err := sf.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loadedSize != size {
		t.Errorf("Load() size = %d, Save() size = %d", loadedSize, size)
	}
	if got, _ := loaded.Get("alice"); string(got) != `{"score":5}` {
		t.Errorf("alice = %s", got)
	}
}

func TestStoreFileLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "global.json")
	if err := os.WriteFile(path, []byte(`{"alice": `), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewStoreFile(path, WriteOptions{}).Load(); !errors.Is(err, ErrCorruptDocument) {
		t.Errorf("Load() error = %v, want ErrCorruptDocument", err)
	}
}

func TestWriteFileAtomicReportsDirSyncFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "global.json")

	failure := errors.New("fsync: input/output error")
	orig := syncDir
	syncDir = func(string) error { return failure }
	t.Cleanup(func() { syncDir = orig })

	var (
		gotDir string
		gotErr error
	)
	opts := WriteOptions{OnDirSyncError: func(d string, err error) {
		gotDir, gotErr = d, err
	}}
	if _, err := WriteFileAtomic(path, opts, func(w io.Writer) error {
		_, err := io.WriteString(w, "{}\n")
		return err
	}); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v, want nil after a committed rename", err)
	}

	if !errors.Is(gotErr, failure) || gotDir != dir {
		t.Errorf("OnDirSyncError got (%q, %v), want (%q, %v)", gotDir, gotErr, dir, failure)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "{}\n" {
		t.Errorf("store content = %q, %v", data, err)
	}

	// NoSync skips the directory sync entirely.
	gotErr = nil
	opts.NoSync = true
	if _, err := WriteFileAtomic(path, opts, func(w io.Writer) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if gotErr != nil {
		t.Errorf("OnDirSyncError called with NoSync: %v", gotErr)
	}
}
