package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// PlaceholderLayout records where a built query's placeholders live, so a
// structurally-identical query built again can reuse the plan without
// re-walking the builder's clause tree.
type PlaceholderLayout struct {
	SQL          string
	Placeholders []string
}

// QueryStructureCache stores the (sql, placeholder-layout) of
// frequently-built queries keyed by a fingerprint of builder state (spec
// §4.5).
type QueryStructureCache struct {
	base *Cache
}

// NewQueryStructureCache wraps base as a QueryStructureCache.
func NewQueryStructureCache(base *Cache) *QueryStructureCache {
	return &QueryStructureCache{base: base}
}

// Fingerprint derives a stable cache key from a builder's shape: the
// entity class name plus an ordered list of clause descriptors (e.g.
// "where:Name=?", "orderby:Name ASC", "limit:10"). Callers build this list
// from their own builder's clause accumulation; the cache only needs a
// stable, order-independent-safe string.
func Fingerprint(className string, clauses ...string) string {
	sorted := append([]string(nil), clauses...)
	sort.Strings(sorted)
	h := sha256.New()
	h.Write([]byte(className))
	for _, c := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a previously cached layout by fingerprint.
func (q *QueryStructureCache) Get(fingerprint string) (PlaceholderLayout, bool) {
	v, ok := q.base.Get(fingerprint)
	if !ok {
		return PlaceholderLayout{}, false
	}
	layout, ok := v.(PlaceholderLayout)
	if !ok {
		return PlaceholderLayout{}, false
	}
	return layout, true
}

// Set stores layout under fingerprint.
func (q *QueryStructureCache) Set(fingerprint string, layout PlaceholderLayout) {
	q.base.Set(fingerprint, layout, 0)
}

// Statistics exposes the wrapped base cache's statistics.
func (q *QueryStructureCache) Statistics() Statistics {
	return q.base.Statistics()
}
