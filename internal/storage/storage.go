// Package storage provides the string-keyed key-value layer every
// collection is persisted to. Values are opaque byte slices; callers are
// responsible for encoding.
package storage

import "errors"

// ErrKeyNotFound is returned by Get for keys with no stored value.
var ErrKeyNotFound = errors.New("storage: key not found")

// KV is the capability handed to the collection store and the services:
// get/set/remove by string key plus prefix enumeration. Implementations
// must be safe for concurrent use.
type KV interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Keys returns all keys starting with prefix. An empty prefix
	// enumerates every key.
	Keys(prefix string) ([]string, error)
	// Close releases underlying resources.
	Close() error
}
