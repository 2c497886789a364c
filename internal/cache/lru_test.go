package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetPutMovesToFront(t *testing.T) {
	c := New[string, int](2, 0, nil, nil)
	c.Put("a", 1)
	c.Put("b", 2)

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3) // evicts "b", the now-least-recently-used
	_, ok = c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("a")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestEntryCapEviction(t *testing.T) {
	var evicted []string
	c := New[string, int](2, 0, nil, func(k string, _ int) {
		evicted = append(evicted, k)
	})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	require.Equal(t, 2, c.Len())
	require.Equal(t, []string{"a"}, evicted)
}

func TestByteCapEviction(t *testing.T) {
	sizeOf := func(v int) int64 { return int64(v) }
	c := New[string, int](0, 10, sizeOf, nil)
	c.Put("a", 4)
	c.Put("b", 4)
	c.Put("c", 4) // 12 > 10, evicts "a"

	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, 2, c.Len())
}

func TestPutReplaceUpdatesBytes(t *testing.T) {
	sizeOf := func(v int) int64 { return int64(v) }
	c := New[string, int](0, 10, sizeOf, nil)
	c.Put("a", 4)
	c.Put("a", 9) // replace, still under cap

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 9, v)
	require.Equal(t, int64(9), c.usedBytes)
}

func TestRemoveInvokesOnEvict(t *testing.T) {
	var evicted []string
	c := New[string, int](0, 0, nil, func(k string, _ int) {
		evicted = append(evicted, k)
	})
	c.Put("a", 1)
	c.Remove("a")

	require.Equal(t, []string{"a"}, evicted)
	require.Equal(t, 0, c.Len())
}

func TestRemoveMissingIsNoop(t *testing.T) {
	c := New[string, int](0, 0, nil, func(string, int) {
		t.Fatal("onEvict should not be called for a missing key")
	})
	c.Remove("missing")
}

func TestCloseEvictsEverything(t *testing.T) {
	var evicted []string
	c := New[string, int](0, 0, nil, func(k string, _ int) {
		evicted = append(evicted, k)
	})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Close()

	require.Equal(t, 0, c.Len())
	require.ElementsMatch(t, []string{"a", "b"}, evicted)
}

func TestUnboundedCacheNeverEvicts(t *testing.T) {
	c := New[int, int](0, 0, nil, nil)
	for i := 0; i < 1000; i++ {
		c.Put(i, i)
	}
	require.Equal(t, 1000, c.Len())
}
