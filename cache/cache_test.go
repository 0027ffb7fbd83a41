package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New(LRU, 10)
	c.Set("a", 1, 0)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_MaxSizeOne_LRU(t *testing.T) {
	c := New(LRU, 1)
	c.Set("a", 1, 0)
	c.Get("a") // access a, bump last-access
	c.Set("b", 2, 0)

	_, hasA := c.Get("a")
	v, hasB := c.Get("b")
	assert.False(t, hasA, "a should have been evicted to make room for b")
	assert.True(t, hasB)
	assert.Equal(t, 2, v)
}

func TestCache_MaxSizeOne_FIFO(t *testing.T) {
	c := New(FIFO, 1)
	c.Set("a", 1, 0)
	c.Get("a")
	c.Set("b", 2, 0)

	_, hasA := c.Get("a")
	_, hasB := c.Get("b")
	assert.False(t, hasA)
	assert.True(t, hasB)
}

func TestCache_LFU_EvictsLeastUsed(t *testing.T) {
	c := New(LFU, 2)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Get("a")
	c.Get("a")
	c.Get("b")

	c.Set("c", 3, 0)

	_, hasB := c.Get("b")
	_, hasA := c.Get("a")
	_, hasC := c.Get("c")
	assert.False(t, hasB, "b had the fewest hits and should be evicted")
	assert.True(t, hasA)
	assert.True(t, hasC)
}

func TestCache_UpdateExistingKeyNeverEvicts(t *testing.T) {
	c := New(LRU, 1)
	c.Set("a", 1, 0)
	c.Set("a", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, int64(0), c.Statistics().Evictions)
}

func TestCache_Expiry(t *testing.T) {
	c := New(LRU, 10)
	c.Set("a", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_TagInvalidation(t *testing.T) {
	c := New(LRU, 10)
	c.Set("k1", 1, 0)
	c.Set("k2", 2, 0)
	c.Set("k3", 3, 0)
	c.Tag("k1", "a")
	c.Tag("k2", "a", "b")
	c.Tag("k3", "b")
	c.Tag("k2", "a") // idempotent re-tag

	deleted := c.InvalidateTag("a")
	assert.Equal(t, 2, deleted)

	_, hasK1 := c.Get("k1")
	_, hasK2 := c.Get("k2")
	_, hasK3 := c.Get("k3")
	assert.False(t, hasK1)
	assert.False(t, hasK2)
	assert.True(t, hasK3)

	deleted = c.InvalidateTag("b")
	assert.Equal(t, 1, deleted)
	_, hasK3 = c.Get("k3")
	assert.False(t, hasK3)

	stats := c.Statistics()
	assert.Equal(t, int64(3), stats.Deletes)
}

func TestCache_Statistics_SizeNeverExceedsMax(t *testing.T) {
	c := New(LRU, 3)
	for i := 0; i < 10; i++ {
		c.Set(string(rune('a'+i)), i, 0)
		assert.LessOrEqual(t, c.Statistics().Size, 3)
	}
}

func TestMetadataCache_InfiniteTTLAndTagging(t *testing.T) {
	base := New(LRU, 10)
	mc := NewMetadataCache(base)
	mc.SetEntityMetadata("User", "descriptor-for-user")

	v, ok := mc.GetEntityMetadata("User")
	require.True(t, ok)
	assert.Equal(t, "descriptor-for-user", v)

	deleted := base.InvalidateTag("entity_metadata")
	assert.Equal(t, 1, deleted)
	_, ok = mc.GetEntityMetadata("User")
	assert.False(t, ok)
}

func TestResultSetCache_RoundTripBelowThreshold(t *testing.T) {
	base := New(LRU, 10)
	rc := NewResultSetCache(base, 1<<20, CodecZstd, nil)

	rows := []map[string]any{{"id": int64(1), "name": "alice"}}
	require.NoError(t, rc.Set("q1", "users", rows, 0))

	got, ok := rc.Get("q1")
	require.True(t, ok)
	assert.Equal(t, rows, got)
}

func TestResultSetCache_CompressesAboveThreshold(t *testing.T) {
	base := New(LRU, 10)
	rc := NewResultSetCache(base, 10, CodecSnappy, nil)

	rows := make([]map[string]any, 0, 50)
	for i := 0; i < 50; i++ {
		rows = append(rows, map[string]any{"id": int64(i), "name": "padding-to-exceed-threshold"})
	}
	require.NoError(t, rc.Set("q2", "users", rows, 0))

	got, ok := rc.Get("q2")
	require.True(t, ok)
	assert.Equal(t, rows, got)
}

func TestResultSetCache_InvalidateTable(t *testing.T) {
	base := New(LRU, 10)
	rc := NewResultSetCache(base, 1<<20, CodecZstd, nil)

	require.NoError(t, rc.Set("q1", "users", []map[string]any{{"id": int64(1)}}, 0))
	require.NoError(t, rc.Set("q2", "posts", []map[string]any{{"id": int64(2)}}, 0))

	deleted := rc.InvalidateTable("users")
	assert.Equal(t, 1, deleted)

	_, ok := rc.Get("q1")
	assert.False(t, ok)
	_, ok = rc.Get("q2")
	assert.True(t, ok)
}

func TestQueryStructureCache_FingerprintStableAcrossClauseOrder(t *testing.T) {
	fp1 := Fingerprint("User", "where:Name=?", "limit:10")
	fp2 := Fingerprint("User", "limit:10", "where:Name=?")
	assert.Equal(t, fp1, fp2)

	qsc := NewQueryStructureCache(New(LRU, 10))
	qsc.Set(fp1, PlaceholderLayout{SQL: "SELECT * FROM users WHERE name = ? LIMIT ?", Placeholders: []string{"Name", "limit"}})

	layout, ok := qsc.Get(fp2)
	require.True(t, ok)
	assert.Equal(t, "SELECT * FROM users WHERE name = ? LIMIT ?", layout.SQL)
}
