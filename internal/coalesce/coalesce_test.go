package coalesce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/minialloc/internal/arena"
	"github.com/scigolib/minialloc/internal/block"
	"github.com/scigolib/minialloc/internal/freelist"
)

// The fixtures mirror a freshly initialized heap: heapFirst one word
// past offset 0, and the first real block one double-word past
// heapFirst, so its left boundary tag is the padding word.
const (
	heapFirst  = arena.Address(block.Word)
	firstBlock = heapFirst + arena.Address(block.DWord)
)

func allocBlock(t *testing.T, a *arena.Arena, addr arena.Address, size uint64) block.Cursor {
	t.Helper()
	c := block.At(a, addr)
	require.NoError(t, c.SetHeader(size, true))
	c.SetFooter()
	return c
}

func freeInPlace(t *testing.T, c block.Cursor) block.Cursor {
	t.Helper()
	require.NoError(t, c.SetHeader(c.Size(), false))
	c.SetFooter()
	return c
}

func TestCoalesceIsolatedBlockStaysAlone(t *testing.T) {
	a := arena.New()
	heapLast := firstBlock + 32
	_, err := a.Sbrk(int64(heapLast))
	require.NoError(t, err)

	c := allocBlock(t, a, firstBlock, 32)
	fl := freelist.New(a)

	c = freeInPlace(t, c)
	fl.Append(c)

	result := Coalesce(fl, heapFirst, heapLast, c)
	assert.Equal(t, c.Addr(), result.Addr())
	assert.Equal(t, uint64(32), result.Size())
	assert.Equal(t, int64(1), fl.Count())
}

func TestCoalesceLeftMerge(t *testing.T) {
	a := arena.New()
	heapLast := firstBlock + 64
	_, err := a.Sbrk(int64(heapLast))
	require.NoError(t, err)

	left := allocBlock(t, a, firstBlock, 32)
	right := allocBlock(t, a, firstBlock+32, 32)
	fl := freelist.New(a)

	left = freeInPlace(t, left)
	fl.Append(left)

	right = freeInPlace(t, right)
	fl.Append(right)

	result := Coalesce(fl, heapFirst, heapLast, right)

	assert.Equal(t, left.Addr(), result.Addr())
	assert.Equal(t, uint64(64), result.Size())
	assert.Equal(t, int64(1), fl.Count())
}

func TestCoalesceRightMerge(t *testing.T) {
	a := arena.New()
	heapLast := firstBlock + 64
	_, err := a.Sbrk(int64(heapLast))
	require.NoError(t, err)

	left := allocBlock(t, a, firstBlock, 32)
	right := allocBlock(t, a, firstBlock+32, 32)
	fl := freelist.New(a)

	right = freeInPlace(t, right)
	fl.Append(right)

	left = freeInPlace(t, left)
	fl.Append(left)

	result := Coalesce(fl, heapFirst, heapLast, left)

	assert.Equal(t, left.Addr(), result.Addr())
	assert.Equal(t, uint64(64), result.Size())
	assert.Equal(t, int64(1), fl.Count())
}

func TestCoalesceBothSides(t *testing.T) {
	a := arena.New()
	heapLast := firstBlock + 96
	_, err := a.Sbrk(int64(heapLast))
	require.NoError(t, err)

	left := allocBlock(t, a, firstBlock, 32)
	mid := allocBlock(t, a, firstBlock+32, 32)
	right := allocBlock(t, a, firstBlock+64, 32)
	fl := freelist.New(a)

	left = freeInPlace(t, left)
	fl.Append(left)
	right = freeInPlace(t, right)
	fl.Append(right)

	mid = freeInPlace(t, mid)
	fl.Append(mid)

	result := Coalesce(fl, heapFirst, heapLast, mid)

	assert.Equal(t, left.Addr(), result.Addr())
	assert.Equal(t, uint64(96), result.Size())
	assert.Equal(t, int64(1), fl.Count())
}

func TestCoalesceDoesNotMergeAcrossAllocatedNeighbor(t *testing.T) {
	a := arena.New()
	heapLast := firstBlock + 64
	_, err := a.Sbrk(int64(heapLast))
	require.NoError(t, err)

	left := allocBlock(t, a, firstBlock, 32) // stays allocated
	right := allocBlock(t, a, firstBlock+32, 32)
	fl := freelist.New(a)

	right = freeInPlace(t, right)
	fl.Append(right)

	result := Coalesce(fl, heapFirst, heapLast, right)

	assert.Equal(t, right.Addr(), result.Addr())
	assert.Equal(t, uint64(32), result.Size())
	assert.True(t, left.Allocated())
}
