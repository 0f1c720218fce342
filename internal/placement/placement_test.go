package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/minialloc/internal/arena"
	"github.com/scigolib/minialloc/internal/block"
	"github.com/scigolib/minialloc/internal/freelist"
)

func TestAdjustedSize(t *testing.T) {
	tests := []struct {
		name string
		n    uint64
		want uint64
	}{
		{"zero payload floors at minimum", 0, 32},
		{"one byte", 1, 32},
		{"exact sixteen", 16, 32},
		{"seventeen rounds up", 17, 48},
		{"forty", 40, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdjustedSize(tt.n))
		})
	}
}

const heapFirst = arena.Address(block.Word)

func newFreeBlock(t *testing.T, a *arena.Arena, addr arena.Address, size uint64) block.Cursor {
	t.Helper()
	c := block.At(a, addr)
	require.NoError(t, c.SetHeader(size, false))
	c.SetFooter()
	return c
}

func TestFindFitNoBlocksReturnsMiss(t *testing.T) {
	a := arena.New()
	_, err := a.Sbrk(16)
	require.NoError(t, err)
	fl := freelist.New(a)

	_, ok := FindFit(fl, 32)
	assert.False(t, ok)
}

func TestFindFitTightFitTakesWholeBlock(t *testing.T) {
	a := arena.New()
	_, err := a.Sbrk(int64(heapFirst)+32)
	require.NoError(t, err)
	fl := freelist.New(a)

	b := newFreeBlock(t, a, heapFirst, 32)
	fl.Append(b)

	hit, ok := FindFit(fl, 32)
	require.True(t, ok)
	assert.Equal(t, uint64(32), hit.Size())
	assert.True(t, hit.Allocated())
	assert.True(t, fl.Empty())
}

func TestFindFitSplitsLargeBlock(t *testing.T) {
	a := arena.New()
	_, err := a.Sbrk(int64(heapFirst)+96)
	require.NoError(t, err)
	fl := freelist.New(a)

	b := newFreeBlock(t, a, heapFirst, 96)
	fl.Append(b)

	hit, ok := FindFit(fl, 32)
	require.True(t, ok)
	assert.Equal(t, uint64(32), hit.Size())
	assert.True(t, hit.Allocated())

	// Remainder (96-32=64 bytes) must be on the free list at the
	// address immediately following the allocated head.
	assert.False(t, fl.Empty())
	assert.Equal(t, hit.Addr()+32, fl.Head)
	remainder := block.At(a, fl.Head)
	assert.Equal(t, uint64(64), remainder.Size())
	assert.False(t, remainder.Allocated())
}

func TestFindFitSkipsTooSmallThenHitsLater(t *testing.T) {
	a := arena.New()
	_, err := a.Sbrk(int64(heapFirst)+80)
	require.NoError(t, err)
	fl := freelist.New(a)

	small := newFreeBlock(t, a, heapFirst, 32)
	big := newFreeBlock(t, a, heapFirst+32, 48)

	// push-front order: small is head, big is tail
	fl.Append(big)
	fl.Append(small)

	hit, ok := FindFit(fl, 48)
	require.True(t, ok)
	assert.Equal(t, big.Addr(), hit.Addr())
}

func TestCreateSpaceExtendsHeap(t *testing.T) {
	a := arena.New()
	_, err := a.Sbrk(int64(heapFirst))
	require.NoError(t, err)

	c, newLast, err := CreateSpace(a, heapFirst, 48)
	require.NoError(t, err)

	assert.Equal(t, heapFirst, c.Addr())
	assert.Equal(t, uint64(48), c.Size())
	assert.True(t, c.Allocated())
	assert.Equal(t, heapFirst+48, newLast)
	assert.Equal(t, arena.Address(uint64(heapFirst)+48), a.Hi())
}
