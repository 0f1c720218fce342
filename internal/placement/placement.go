// Package placement implements the allocator's find-fit/split/grow
// policy: the only component of the core that decides where a request
// gets its memory from. It is a direct generalization of the teacher's
// sequential, end-of-file allocation strategy (see
// internal/writer.Allocator in the scigolib/hdf5 module this package
// is grounded on) into a first-fit search over a real free list that
// falls back to growing the arena only on a miss.
package placement

import (
	"github.com/scigolib/minialloc/internal/arena"
	"github.com/scigolib/minialloc/internal/block"
	"github.com/scigolib/minialloc/internal/freelist"
)

// AdjustedSize returns the total block size needed to satisfy a
// requested payload of n bytes: header + footer overhead, plus the
// payload rounded up to a 16-byte multiple, with a 32-byte floor.
func AdjustedSize(n uint64) uint64 {
	adj := block.DWord + block.RoundUp(n, block.DWord)
	if adj < block.MinSize {
		adj = block.MinSize
	}
	return adj
}

// FindFit performs a first-fit scan of fl starting at its head. A hit
// large enough to leave a minimum-sized remainder after carving off adj
// bytes is split; a tight hit is taken whole. Returns ok=false if no
// block in the list can satisfy adj.
func FindFit(fl *freelist.List, adj uint64) (c block.Cursor, ok bool) {
	fl.Walk(func(cur block.Cursor) bool {
		size := cur.Size()
		switch {
		case size >= 2*block.DWord+adj:
			c = split(fl, cur, adj)
			ok = true
			return false
		case size >= adj:
			fl.Remove(cur)
			_ = cur.SetHeader(size, true)
			cur.SetFooter()
			c = cur
			ok = true
			return false
		default:
			return true
		}
	})
	return c, ok
}

// split carves adj bytes off the front of cur (already known to be
// large enough to leave a minimum-sized remainder), marks the front
// allocated, and appends the trailing remainder to the free list.
func split(fl *freelist.List, cur block.Cursor, adj uint64) block.Cursor {
	fl.Remove(cur)
	oldSize := cur.Size()

	_ = cur.SetHeader(adj, true)
	cur.SetFooter()

	tail := block.At(cur.Arena(), cur.Addr()+arena.Address(adj))
	_ = tail.SetHeader(oldSize-adj, false)
	tail.SetFooter()
	fl.Append(tail)

	return cur
}

// CreateSpace extends the arena by exactly size bytes starting at the
// old heapLast, writes the new bytes as a single allocated block, and
// returns that block together with the heap's new high sentinel. The
// caller (the public Malloc path) does not place this block in the
// free list: spec.md's placement policy only ever inserts blocks into
// the free list on Free or on a split remainder.
func CreateSpace(a *arena.Arena, heapLast arena.Address, size uint64) (block.Cursor, arena.Address, error) {
	if _, err := a.Sbrk(int64(size)); err != nil {
		return block.Cursor{}, heapLast, err
	}

	c := block.At(a, heapLast)
	_ = c.SetHeader(size, true)
	c.SetFooter()

	return c, heapLast + arena.Address(size), nil
}
