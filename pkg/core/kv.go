// Package core provides the fundamental data structures of the jsonkv engine.
//
// This file implements the in-memory keyspace: a sorted mapping from record
// keys to JSON values backed by a copy-on-write B-tree. A Keyspace is not
// safe for concurrent mutation. The engine never mutates a Keyspace once it
// has been published to readers; it clones it, mutates the clone and swaps
// it in.
package core

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/btree"
)

// Keyspace is the complete mapping from keys to their values.
type Keyspace struct {
	tree *btree.Map[string, json.RawMessage]
}

// NewKeyspace creates and returns a new, empty Keyspace.
func NewKeyspace() *Keyspace {
	return &Keyspace{
		tree: new(btree.Map[string, json.RawMessage]),
	}
}

// Get retrieves the value stored for key.
// The returned slice is shared with the keyspace and must not be modified.
func (k *Keyspace) Get(key string) (json.RawMessage, bool) {
	return k.tree.Get(key)
}

// Has reports whether key is present, regardless of its value.
func (k *Keyspace) Has(key string) bool {
	_, ok := k.tree.Get(key)
	return ok
}

// Set adds or replaces the value for key.
func (k *Keyspace) Set(key string, value json.RawMessage) {
	k.tree.Set(key, value)
}

// Delete removes key and reports whether it was present.
func (k *Keyspace) Delete(key string) bool {
	_, ok := k.tree.Delete(key)
	return ok
}

// Len returns the number of keys.
func (k *Keyspace) Len() int {
	return k.tree.Len()
}

// Clone returns an independent copy of the keyspace. The underlying tree is
// copied lazily, so cloning is O(1) and only touched nodes are duplicated on
// the next write.
func (k *Keyspace) Clone() *Keyspace {
	return &Keyspace{tree: k.tree.Copy()}
}

// Range calls fn for every pair in ascending key order until fn returns false.
func (k *Keyspace) Range(fn func(key string, value json.RawMessage) bool) {
	k.tree.Scan(fn)
}

// Keys returns the sorted keys that start with prefix. An empty prefix
// returns every key.
func (k *Keyspace) Keys(prefix string) []string {
	keys := make([]string, 0)
	k.tree.Ascend(prefix, func(key string, _ json.RawMessage) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		keys = append(keys, key)
		return true
	})
	return keys
}
