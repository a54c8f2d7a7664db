// Package blockcache memoizes decompressed archive entries behind a
// popularity-aware eviction policy, so a caller that re-reads the same
// hot entry repeatedly does not re-run the inflater every time.
//
// Grounded on elliotnunn-BeHierarchic's internal/spinner block cache,
// which keys a tinylfu.T by (file identity, offset) to avoid re-reading
// the same filesystem block twice; here the key is (archive identity,
// entry name) and the value is a whole decompressed entry rather than a
// fixed-size block, since zip/gzip entries are read whole.
package blockcache

import (
	"hash/maphash"

	tinylfu "github.com/dgryski/go-tinylfu"
)

// Key identifies a cached entry: a caller-assigned identity for the
// archive (a monotonic counter per opened archive, in the style of
// elliotnunn-BeHierarchic's internal/decompressioncache "uniq" field)
// plus the entry name within it.
type Key struct {
	Archive uint64
	Name    string
}

var seed = maphash.MakeSeed()

// hashKey mirrors the teacher's blkHash, which feeds its comparable
// cache key straight to maphash.Comparable.
func hashKey(k Key) uint64 {
	return maphash.Comparable(seed, k)
}

// Cache is a TinyLFU-backed map from Key to a decompressed payload. V is
// typically []byte (one entry's bytes) or []Member (a whole parsed
// stream). The zero value is not usable; construct with New.
type Cache[V any] struct {
	lfu *tinylfu.T[Key, V]
}

// New builds a cache admitting up to size entries, sized the way the
// teacher's block cache sizes its sample window (10x the capacity).
func New[V any](size int) *Cache[V] {
	if size <= 0 {
		size = 1
	}
	return &Cache[V]{
		lfu: tinylfu.New[Key, V](size, size*10, hashKey),
	}
}

// Get returns a previously stored payload for key, if still resident.
func (c *Cache[V]) Get(key Key) (V, bool) {
	return c.lfu.Get(key)
}

// Add records a payload under key, possibly evicting a less popular
// entry.
func (c *Cache[V]) Add(key Key, data V) {
	c.lfu.Add(key, data)
}
