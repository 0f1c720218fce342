// Package minialloc implements a general-purpose dynamic storage
// allocator over a single, monotonically growable in-process heap: the
// classic four-function malloc/free/realloc/calloc contract, backed by
// an explicit free list, first-fit placement, and boundary-tag
// coalescing. There is no real process address space underneath it —
// see internal/arena — so every address this package hands back is an
// internal/arena.Address offset, paired with a []byte view of its
// payload for callers that need to read or write it.
package minialloc

import (
	"github.com/scigolib/minialloc/internal/arena"
	"github.com/scigolib/minialloc/internal/block"
	"github.com/scigolib/minialloc/internal/checker"
	"github.com/scigolib/minialloc/internal/coalesce"
	"github.com/scigolib/minialloc/internal/freelist"
	"github.com/scigolib/minialloc/internal/placement"
	"github.com/scigolib/minialloc/internal/utils"
)

// reserveBytes is the padding + prologue/epilogue region Init lays down
// before any real block exists: one pad word, a double-word prologue,
// and a double-word epilogue region (2*DWord + Word), resolved from
// _examples/original_source/mm.c's mem_sbrk(2*D_SIZE + W_SIZE) call.
const reserveBytes = 2*block.DWord + block.Word

// Heap is one independent allocator instance: an arena, the heap_first/
// heap_last sentinels, and the free list threaded through it. The
// reference design treats these as process-wide singletons (Design
// Notes §9); this port makes them instance fields and dispatches the
// package-level convenience functions through a single default Heap.
type Heap struct {
	a           *arena.Arena
	heapFirst   arena.Address
	heapLast    arena.Address
	fl          *freelist.List
	initialized bool
}

// Option configures a Heap at construction time.
type Option func(*Heap)

// WithArena supplies the heap-provider a freshly constructed Heap will
// reserve its sentinel region on, letting tests and cmd/heaptrace
// control exactly which Arena backs a Heap. Only honored on the first
// call to Init; subsequent Init calls always start from a brand new
// Arena, since re-initializing must fully re-establish the heap.
func WithArena(a *arena.Arena) Option {
	return func(h *Heap) { h.a = a }
}

// NewHeap constructs an un-initialized Heap. Malloc (and Realloc/Calloc
// through it) runs Init on first use; until then Free is a no-op and
// Check reports nothing.
func NewHeap(opts ...Option) *Heap {
	h := &Heap{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Init (re-)establishes the heap: it reserves the padding/prologue/
// epilogue region, recomputes heapFirst/heapLast, and clears the free
// list. It may be called more than once on the same Heap — each call
// fully re-establishes the sentinels, discarding whatever the previous
// session had grown, matching spec.md §5's "init may be called multiple
// times across traces" requirement.
func (h *Heap) Init() error {
	if h.a == nil || h.initialized {
		h.a = arena.New()
	}

	oldHi := h.a.Hi()
	if _, err := h.a.Sbrk(reserveBytes); err != nil {
		return utils.WrapErrorAt("minialloc.Init", uint64(oldHi), err)
	}

	h.heapFirst = oldHi + arena.Address(block.Word)
	h.heapLast = h.a.Hi() - arena.Address(block.DWord)
	h.fl = freelist.New(h.a)
	h.initialized = true
	return nil
}

// Bytes returns a slice view over addr's payload, sized to what was
// actually reserved for it (which may be larger than the last
// requested size, per spec.md §4.1's rounding). Calling it with an
// address not currently allocated by this Heap is undefined behavior.
func (h *Heap) Bytes(addr arena.Address) []byte {
	return block.FromPayload(h.a, addr).Bytes()
}

// Malloc reserves a block able to hold at least size bytes and returns
// its address. If the Heap has not been initialized yet, Malloc runs
// Init on it first, matching spec.md §4.5 and
// _examples/original_source/mm.c's malloc, which calls mm_init lazily
// on its first invocation. size == 0, a failed lazy Init, or heap
// exhaustion all report ok == false, matching the upward API's
// "malloc(0) -> null" and OutOfHeap taxonomy; the heap is left
// unchanged on failure.
func (h *Heap) Malloc(size uint64) (addr arena.Address, ok bool) {
	if size == 0 {
		return 0, false
	}
	if !h.initialized {
		if err := h.Init(); err != nil {
			return 0, false
		}
	}

	adj := placement.AdjustedSize(size)
	if c, hit := placement.FindFit(h.fl, adj); hit {
		return c.Payload(), true
	}

	c, newLast, err := placement.CreateSpace(h.a, h.heapLast, adj)
	if err != nil {
		return 0, false
	}
	h.heapLast = newLast
	return c.Payload(), true
}

// Free releases the block at addr, returning it to the free list and
// immediately coalescing it with any free physical neighbor. addr == 0
// is a no-op, matching the upward API's "free(null)" contract. Passing
// an address this Heap did not return from Malloc/Calloc/Realloc, or
// freeing the same address twice, is undefined behavior (spec.md §7).
func (h *Heap) Free(addr arena.Address) {
	if !h.initialized || addr == 0 {
		return
	}

	c := block.FromPayload(h.a, addr)
	_ = c.SetHeader(c.Size(), false)
	c.SetFooter()
	h.fl.Append(c)
	coalesce.Coalesce(h.fl, h.heapFirst, h.heapLast, c)
}

// Realloc resizes the block at addr to hold at least size bytes,
// preserving the first min(old, size) bytes of its payload, and returns
// the (possibly different) address of the result. addr == 0 behaves
// like Malloc(size); size == 0 frees addr and reports ok == false,
// matching the upward API's realloc(x,0)/realloc(null,n) equivalences.
func (h *Heap) Realloc(addr arena.Address, size uint64) (arena.Address, bool) {
	if addr == 0 {
		return h.Malloc(size)
	}
	if size == 0 {
		h.Free(addr)
		return 0, false
	}

	old := block.FromPayload(h.a, addr)
	oldPayload := old.Size() - block.DWord

	newAddr, ok := h.Malloc(size)
	if !ok {
		return 0, false
	}

	n := oldPayload
	if size < n {
		n = size
	}
	copy(h.Bytes(newAddr)[:n], h.Bytes(addr)[:n])
	h.Free(addr)
	return newAddr, true
}

// Calloc reserves a block for n elements of size bytes each, zeroes its
// payload, and returns its address. An n*size product that would
// overflow uint64, or that is zero, reports ok == false — a deliberate
// tightening of spec.md §4.5's "overflow of n*size is not checked in
// the reference design", via internal/utils.SafeMultiply.
func (h *Heap) Calloc(n, size uint64) (arena.Address, bool) {
	total, err := utils.SafeMultiply(n, size)
	if err != nil || total == 0 {
		return 0, false
	}

	addr, ok := h.Malloc(total)
	if !ok {
		return 0, false
	}
	clear(h.Bytes(addr))
	return addr, true
}

// Check runs the read-only heap auditor and returns one diagnostic
// string per invariant violation found, each ending in the
// caller-supplied line number. An empty slice means the heap is
// consistent. Check never mutates the heap.
func (h *Heap) Check(line int) []string {
	if !h.initialized {
		return nil
	}
	return checker.Check(h.a, h.heapFirst, h.heapLast, h.fl, line)
}

// defaultHeap backs the package-level convenience functions below, for
// callers that want the classic four-function global-state API instead
// of an explicit Heap instance.
var defaultHeap = NewHeap()

// Init (re-)establishes the package-level default Heap.
func Init() error { return defaultHeap.Init() }

// Malloc reserves size bytes on the package-level default Heap.
func Malloc(size uint64) (arena.Address, bool) { return defaultHeap.Malloc(size) }

// Free releases addr on the package-level default Heap.
func Free(addr arena.Address) { defaultHeap.Free(addr) }

// Realloc resizes addr to size bytes on the package-level default Heap.
func Realloc(addr arena.Address, size uint64) (arena.Address, bool) {
	return defaultHeap.Realloc(addr, size)
}

// Calloc reserves n*size zeroed bytes on the package-level default Heap.
func Calloc(n, size uint64) (arena.Address, bool) { return defaultHeap.Calloc(n, size) }

// Bytes returns addr's payload view on the package-level default Heap.
func Bytes(addr arena.Address) []byte { return defaultHeap.Bytes(addr) }

// Check audits the package-level default Heap.
func Check(line int) []string { return defaultHeap.Check(line) }
