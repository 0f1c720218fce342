// Package freelist implements the explicit doubly linked index of free
// blocks threaded through the payload bytes of every free block in the
// heap, rooted at a single process-wide (here, per-List) head pointer.
package freelist

import (
	"github.com/scigolib/minialloc/internal/arena"
	"github.com/scigolib/minialloc/internal/block"
)

// none is the sentinel "no block" address. It is safe to reuse the
// arena's own zero address as "absent" because no real block ever
// starts at offset 0 — the prologue padding word occupies it.
const none = arena.Address(0)

// List is the free-block index: a doubly linked list, unordered,
// modified push-front.
type List struct {
	a    *arena.Arena
	Head arena.Address
}

// New returns an empty free list over the given arena.
func New(a *arena.Arena) *List {
	return &List{a: a, Head: none}
}

func (l *List) at(addr arena.Address) block.Cursor {
	return block.At(l.a, addr)
}

// Empty reports whether the list currently has no nodes.
func (l *List) Empty() bool {
	return l.Head == none
}

// Append pushes c onto the front of the list in O(1).
func (l *List) Append(c block.Cursor) {
	c.SetNext(l.Head)
	if l.Head != none {
		l.at(l.Head).SetPrev(c.Addr())
	}
	c.SetPrev(none)
	l.Head = c.Addr()
}

// Remove detaches c from whatever position it occupies in O(1). The
// caller MUST ensure c is currently a member of this list; removing a
// block that isn't linked in is undefined behavior, matching spec §7's
// UndefinedBehavior category (never checked at runtime here, same as
// the reference C implementation's assert-only guard).
func (l *List) Remove(c block.Cursor) {
	prev := c.GetPrev()
	next := c.GetNext()

	if prev == none {
		l.Head = next
	} else {
		l.at(prev).SetNext(next)
	}
	if next != none {
		l.at(next).SetPrev(prev)
	}
}

// Walk visits every node from Head forward via next-links, stopping
// early if yield returns false.
func (l *List) Walk(yield func(block.Cursor) bool) {
	for addr := l.Head; addr != none; {
		c := l.at(addr)
		next := c.GetNext()
		if !yield(c) {
			return
		}
		addr = next
	}
}

// Count returns the number of nodes reachable from Head.
func (l *List) Count() int64 {
	var n int64
	l.Walk(func(block.Cursor) bool {
		n++
		return true
	})
	return n
}
