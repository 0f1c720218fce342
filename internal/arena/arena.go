// Package arena provides the heap-provider adapter: the only primitives
// the allocator core is allowed to assume about its backing storage —
// the current low and high address of the heap, and the ability to
// extend it. There is no real process address space here; addresses are
// offsets into a single growable byte slice, which keeps every other
// package's pointer arithmetic inside the typed Cursor façade instead of
// unsafe.Pointer games.
package arena

import (
	"errors"

	"github.com/scigolib/minialloc/internal/utils"
)

// Address is an offset into an Arena's backing buffer. It stands in for
// a real memory address: Address(0) is the arena's low end, and
// Address(len(buf)) is its current high end.
type Address uint64

// ErrOutOfHeap is returned when the provider refuses to extend the heap.
var ErrOutOfHeap = errors.New("arena: out of heap")

// Arena is the heap-provider: a single contiguous, monotonically
// growable region. It never shrinks.
type Arena struct {
	buf []byte
}

// New returns an empty Arena.
func New() *Arena {
	return &Arena{}
}

// Lo returns the current low address of the heap. Always zero: Arena
// never relocates its low end.
func (a *Arena) Lo() Address {
	return 0
}

// Hi returns the current high address of the heap, i.e. one past the
// last valid byte.
func (a *Arena) Hi() Address {
	return Address(len(a.buf))
}

// Sbrk extends the heap by delta bytes and returns the old break (the
// address at which the new bytes begin). delta must be non-negative;
// the heap only grows.
func (a *Arena) Sbrk(delta int64) (old Address, err error) {
	if delta < 0 {
		return 0, utils.WrapErrorAt("arena.Sbrk", uint64(a.Hi()), errors.New("negative delta"))
	}
	if delta == 0 {
		return a.Hi(), nil
	}
	if err := utils.ValidateBufferSize(uint64(delta), utils.MaxHeapBytes, "sbrk request"); err != nil {
		return 0, utils.WrapErrorAt("arena.Sbrk", uint64(a.Hi()), err)
	}

	old = a.Hi()
	newSize := len(a.buf) + int(delta)
	if newSize < len(a.buf) { // overflowed int on a 32-bit host
		return 0, utils.WrapErrorAt("arena.Sbrk", uint64(old), ErrOutOfHeap)
	}

	grown := make([]byte, newSize)
	copy(grown, a.buf)
	a.buf = grown
	return old, nil
}

// At returns a slice view of n bytes starting at addr. It panics if the
// requested range is outside [Lo, Hi) — that is a programmer error in
// one of this module's own packages, never a condition a caller of the
// public API can trigger.
func (a *Arena) At(addr Address, n int) []byte {
	start := int(addr)
	end := start + n
	if start < 0 || n < 0 || end > len(a.buf) {
		panic("arena: address range out of bounds")
	}
	return a.buf[start:end]
}

// Size reports the arena's current byte length, equivalent to Hi()-Lo().
func (a *Arena) Size() uint64 {
	return uint64(len(a.buf))
}
