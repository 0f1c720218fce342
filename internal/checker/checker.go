// Package checker implements the allocator's read-only self-consistency
// auditor: it never mutates the heap, only reports. It is deliberately
// free of any import on the root module package so the root package can
// call into it without creating a cycle.
package checker

import (
	"fmt"

	"github.com/scigolib/minialloc/internal/arena"
	"github.com/scigolib/minialloc/internal/block"
	"github.com/scigolib/minialloc/internal/freelist"
)

// Check walks the heap described by a/heapFirst/heapLast/fl and returns
// one formatted message per invariant violation, each ending in the
// caller-supplied line number. An empty slice means the heap is
// consistent. Checks run in this order, mirroring the reference
// allocator's mm_checkheap:
//
//  1. heapFirst is non-null and equals Lo()+Word.
//  2. heapLast is non-null and equals Hi()-DWord.
//  3. Implicit walk from the first real block to heapLast: size is a
//     multiple of 16 and >= MinSize, address lies in [Lo,Hi], header
//     equals footer, the offset from heapFirst is a multiple of 16, and
//     no two physically consecutive blocks are both free.
//  4. The free-block count from the implicit walk.
//  5. Explicit walk of fl from its head: each node's prev must match the
//     previously visited node, each node must lie in [Lo,Hi], and the
//     count from step 4 is decremented per node.
//  6. The count must land on exactly zero.
func Check(a *arena.Arena, heapFirst, heapLast arena.Address, fl *freelist.List, line int) []string {
	var errs []string
	report := func(msg string) {
		errs = append(errs, fmt.Sprintf("Error: %s. Line %d", msg, line))
	}

	lo, hi := a.Lo(), a.Hi()

	if heapFirst == 0 {
		report("prologue is null")
	} else if heapFirst != lo+arena.Address(block.Word) {
		report("prologue has been moved")
	}

	if heapLast == 0 {
		report("epilogue is null")
	} else if heapLast != hi-arena.Address(block.DWord) {
		report("epilogue has been moved")
	}

	var numFree int64
	var prev block.Cursor
	havePrev := false

	for curr := heapFirst + arena.Address(block.DWord); curr < heapLast; {
		c := block.At(a, curr)

		if !c.Allocated() {
			numFree++
			if havePrev && !prev.Allocated() {
				report("failure to coalesce")
			}
		}

		size := c.Size()
		if size%block.DWord != 0 {
			report("block is not aligned")
		}
		if curr < lo || curr > hi {
			report("block is outside of heap boundary")
		}
		if c.Header() != block.At(a, c.FooterAddr()).Header() {
			report("a footer is not equivalent to its header")
		}
		if size < block.MinSize {
			report("size of block is below minimum size")
		}
		if uint64(curr-heapFirst)%block.DWord != 0 {
			report("block address not aligned")
		}

		prev = c
		havePrev = true
		curr = curr + arena.Address(size)
	}

	if !fl.Empty() {
		var prevAddr arena.Address // zero value is the list's own "no node" sentinel
		fl.Walk(func(c block.Cursor) bool {
			if c.GetPrev() != prevAddr {
				report("prev of curr not matched with next of prev")
			}
			if c.Addr() < lo || c.Addr() > hi {
				report("free block outside of heap boundaries")
			}
			numFree--
			prevAddr = c.Addr()
			return true
		})
	}

	switch {
	case numFree < 0:
		report("free list storing more blocks than are freed")
	case numFree > 0:
		report("not all free blocks are being stored in list")
	}

	return errs
}
