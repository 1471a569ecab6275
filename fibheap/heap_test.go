package fibheap

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeap_EmptyBehavior(t *testing.T) {
	h := New[string]()
	assert.True(t, h.Empty())
	assert.Equal(t, 0, h.Len())

	_, _, ok := h.Min()
	assert.False(t, ok)
	_, _, ok = h.ExtractMin()
	assert.False(t, ok)
}

func TestHeap_InsertUpdatesMin(t *testing.T) {
	h := New[string]()
	h.Insert(10, "ten")
	key, val, ok := h.Min()
	require.True(t, ok)
	assert.Equal(t, int64(10), key)
	assert.Equal(t, "ten", val)

	h.Insert(3, "three")
	key, val, ok = h.Min()
	require.True(t, ok)
	assert.Equal(t, int64(3), key)
	assert.Equal(t, "three", val)

	// A larger key must not displace the min.
	h.Insert(7, "seven")
	key, _, _ = h.Min()
	assert.Equal(t, int64(3), key)
	assert.Equal(t, 3, h.Len())
}

func TestHeap_ExtractMinOrdering(t *testing.T) {
	h := New[int]()
	keys := []int64{5, 3, 8, 1, 9, 2, 7, 4, 6, 0}
	for _, k := range keys {
		h.Insert(k, int(k))
	}

	for want := int64(0); want < 10; want++ {
		key, val, ok := h.ExtractMin()
		require.True(t, ok)
		assert.Equal(t, want, key)
		assert.Equal(t, int(want), val)
	}
	assert.True(t, h.Empty())
}

func TestHeap_DuplicateKeys(t *testing.T) {
	h := New[string]()
	h.Insert(1, "a")
	h.Insert(1, "b")
	h.Insert(1, "c")

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		key, val, ok := h.ExtractMin()
		require.True(t, ok)
		assert.Equal(t, int64(1), key)
		seen[val] = true
	}
	assert.Len(t, seen, 3)
}

// TestHeap_RandomizedAgainstReference drives random insert/extract
// sequences and checks every extraction against a sorted reference slice.
func TestHeap_RandomizedAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	h := New[int64]()
	var reference []int64

	for round := 0; round < 5000; round++ {
		if rng.Intn(3) != 0 || len(reference) == 0 {
			k := rng.Int63n(100000)
			h.Insert(k, k)
			reference = append(reference, k)
			sort.Slice(reference, func(i, j int) bool { return reference[i] < reference[j] })
		} else {
			key, _, ok := h.ExtractMin()
			require.True(t, ok)
			require.Equal(t, reference[0], key, "round %d: extract-min mismatch", round)
			reference = reference[1:]
		}
		require.Equal(t, len(reference), h.Len())
	}

	// Drain: keys must come out in non-decreasing order.
	prev := int64(-1)
	for !h.Empty() {
		key, _, ok := h.ExtractMin()
		require.True(t, ok)
		require.GreaterOrEqual(t, key, prev)
		prev = key
	}
}

func TestHeap_DecreaseKey(t *testing.T) {
	h := New[string]()
	h.Insert(10, "a")
	node := h.Insert(20, "b")
	h.Insert(30, "c")

	require.NoError(t, h.DecreaseKey(node, 5))
	key, val, ok := h.Min()
	require.True(t, ok)
	assert.Equal(t, int64(5), key)
	assert.Equal(t, "b", val)
}

func TestHeap_DecreaseKeyRejectsIncrease(t *testing.T) {
	h := New[string]()
	node := h.Insert(10, "a")
	assert.ErrorIs(t, h.DecreaseKey(node, 15), ErrKeyIncrease)
}

func TestHeap_DecreaseKeyDeepInTree(t *testing.T) {
	// Force consolidation so nodes gain parents, then violate heap order
	// to exercise the cut and cascading cut path.
	h := New[int64]()
	nodes := make([]*Node[int64], 0, 64)
	for i := int64(0); i < 64; i++ {
		nodes = append(nodes, h.Insert(i+10, i+10))
	}
	_, _, ok := h.ExtractMin() // triggers consolidate
	require.True(t, ok)

	// Decrease a batch of keys below everything else.
	for i, n := range nodes[1:] {
		if i%7 == 0 {
			require.NoError(t, h.DecreaseKey(n, int64(i)-100))
		}
	}

	prev := int64(-1 << 62)
	for !h.Empty() {
		key, _, ok := h.ExtractMin()
		require.True(t, ok)
		require.GreaterOrEqual(t, key, prev)
		prev = key
	}
}

func TestHeap_Delete(t *testing.T) {
	h := New[string]()
	h.Insert(1, "keep-1")
	victim := h.Insert(2, "victim")
	h.Insert(3, "keep-3")

	h.Delete(victim)
	assert.Equal(t, 2, h.Len())

	_, val, ok := h.ExtractMin()
	require.True(t, ok)
	assert.Equal(t, "keep-1", val)
	_, val, ok = h.ExtractMin()
	require.True(t, ok)
	assert.Equal(t, "keep-3", val)
}

func TestHeap_Merge(t *testing.T) {
	a := New[string]()
	a.Insert(4, "a4")
	a.Insert(8, "a8")

	b := New[string]()
	b.Insert(2, "b2")
	b.Insert(6, "b6")

	a.Merge(b)
	assert.Equal(t, 4, a.Len())
	assert.Equal(t, 0, b.Len(), "merged-from heap is emptied")

	var keys []int64
	for !a.Empty() {
		key, _, ok := a.ExtractMin()
		require.True(t, ok)
		keys = append(keys, key)
	}
	assert.Equal(t, []int64{2, 4, 6, 8}, keys)
}

func TestHeap_MergeIntoEmpty(t *testing.T) {
	a := New[string]()
	b := New[string]()
	b.Insert(1, "one")

	a.Merge(b)
	assert.Equal(t, 1, a.Len())
	key, val, ok := a.Min()
	require.True(t, ok)
	assert.Equal(t, int64(1), key)
	assert.Equal(t, "one", val)

	// Merging an empty or nil heap is a no-op.
	a.Merge(New[string]())
	a.Merge(nil)
	assert.Equal(t, 1, a.Len())
}

func TestHeap_MergeRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := New[int64]()
	b := New[int64]()
	var reference []int64

	for i := 0; i < 500; i++ {
		k := rng.Int63n(10000)
		reference = append(reference, k)
		if i%2 == 0 {
			a.Insert(k, k)
		} else {
			b.Insert(k, k)
		}
	}
	// Exercise both heaps before the merge so trees exist.
	lowA, _, _ := a.ExtractMin()
	lowB, _, _ := b.ExtractMin()
	sort.Slice(reference, func(i, j int) bool { return reference[i] < reference[j] })
	require.Equal(t, reference[0], min64(lowA, lowB))
	reference = remove64(reference, lowA)
	reference = remove64(reference, lowB)

	a.Merge(b)
	require.Equal(t, len(reference), a.Len())

	for _, want := range reference {
		key, _, ok := a.ExtractMin()
		require.True(t, ok)
		require.Equal(t, want, key)
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func remove64(s []int64, v int64) []int64 {
	for i, x := range s {
		if x == v {
			return append(append([]int64(nil), s[:i]...), s[i+1:]...)
		}
	}
	return s
}
