// Package coalesce implements the engine invoked by Free after a newly
// freed block has already been pushed onto the free list: it merges the
// block with an immediately preceding free neighbor (left-merge), then
// merges the resulting block with an immediately following free
// neighbor (right-merge), restoring the invariant that no two
// physically adjacent free blocks both appear in the list.
package coalesce

import (
	"github.com/scigolib/minialloc/internal/arena"
	"github.com/scigolib/minialloc/internal/block"
	"github.com/scigolib/minialloc/internal/freelist"
)

// leftMerge inspects the boundary tag immediately before c. If that
// word belongs to a free block (and c is not the heap's first real
// block), it unlinks both blocks, rewrites the left block's
// header/footer to cover the combined size, re-links it, and returns
// it as the new "current" block. Otherwise c is returned unchanged.
func leftMerge(fl *freelist.List, heapFirst arena.Address, c block.Cursor) block.Cursor {
	if c.LeftFooterAddr() == heapFirst+arena.Address(block.Word) {
		return c
	}

	left := c.LeftNeighbor()
	if left.Allocated() {
		return c
	}

	fl.Remove(c)
	fl.Remove(left)

	newSize := c.Size() + left.Size()
	_ = left.SetHeader(newSize, false)
	left.SetFooter()
	fl.Append(left)

	return left
}

// Coalesce merges c with its free physical neighbors on both sides and
// returns the (possibly larger) resulting free block. c MUST already be
// linked into fl before this is called.
func Coalesce(fl *freelist.List, heapFirst, heapLast arena.Address, c block.Cursor) block.Cursor {
	merged := leftMerge(fl, heapFirst, c)

	rightAddr := merged.NextAddr()
	if rightAddr == heapLast {
		return merged
	}

	right := block.At(merged.Arena(), rightAddr)
	if right.Allocated() {
		return merged
	}

	return leftMerge(fl, heapFirst, right)
}
