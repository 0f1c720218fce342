// Package block implements the typed "block cursor" façade Design Notes
// call for: every block of the heap — free or allocated — has an
// identical header/payload/footer layout, and every other package reads
// and writes that layout exclusively through a Cursor rather than
// touching arena bytes directly.
package block

import (
	"encoding/binary"
	"errors"

	"github.com/scigolib/minialloc/internal/arena"
)

const (
	// Word is the size, in bytes, of a header or footer word.
	Word = 8
	// DWord is the combined size of a header and footer.
	DWord = 2 * Word
	// MinSize is the smallest legal block: header + footer + a
	// two-pointer free-list payload.
	MinSize = 32

	allocBit  = 0x1
	sizeMask  = ^uint64(0xF)
	alignMask = 0xF
)

// ErrMisaligned is returned by SetHeader when the requested size is not
// a multiple of 16. The reference allocator treats this as a silent
// contract violation; this port surfaces it as an error instead, since
// every internal caller already derives sizes from RoundUp and the
// error path is otherwise unreachable.
var ErrMisaligned = errors.New("block: size is not a multiple of 16")

// Cursor addresses one block's header inside an Arena and exposes every
// header/footer/payload/link operation as a method.
type Cursor struct {
	a   *arena.Arena
	hdr arena.Address
}

// At returns a Cursor positioned at the block whose header begins at addr.
func At(a *arena.Arena, addr arena.Address) Cursor {
	return Cursor{a: a, hdr: addr}
}

// Addr returns the address of this block's header.
func (c Cursor) Addr() arena.Address {
	return c.hdr
}

// Arena returns the backing arena this cursor reads and writes through,
// so neighboring packages can construct sibling cursors without
// threading the arena through every call.
func (c Cursor) Arena() *arena.Arena {
	return c.a
}

// RoundUp returns the least multiple of m that is >= n.
func RoundUp(n, m uint64) uint64 {
	return (n + m - 1) / m * m
}

func readWord(a *arena.Arena, addr arena.Address) uint64 {
	return binary.LittleEndian.Uint64(a.At(addr, Word))
}

func writeWord(a *arena.Arena, addr arena.Address, v uint64) {
	binary.LittleEndian.PutUint64(a.At(addr, Word), v)
}

// SizeFromWord extracts the size field of a raw header/footer word.
func SizeFromWord(word uint64) uint64 {
	return word & sizeMask
}

// AllocatedFromWord extracts the allocated-bit of a raw header/footer word.
func AllocatedFromWord(word uint64) bool {
	return word&allocBit != 0
}

// Header returns the raw header word of this block.
func (c Cursor) Header() uint64 {
	return readWord(c.a, c.hdr)
}

// Size returns the block's size in bytes, including header and footer.
func (c Cursor) Size() uint64 {
	return SizeFromWord(c.Header())
}

// Allocated reports whether the allocated-bit of the header is set.
func (c Cursor) Allocated() bool {
	return AllocatedFromWord(c.Header())
}

// SetHeader writes size|allocated-bit into the header word.
func (c Cursor) SetHeader(size uint64, allocated bool) error {
	if size&alignMask != 0 {
		return ErrMisaligned
	}
	word := size
	if allocated {
		word |= allocBit
	}
	writeWord(c.a, c.hdr, word)
	return nil
}

// FooterAddr returns the address of this block's footer, computed from
// the size field currently in the header.
func (c Cursor) FooterAddr() arena.Address {
	return c.hdr + arena.Address(c.Size()) - Word
}

// SetFooter copies the current header word into the footer slot. It
// MUST be called immediately after SetHeader, before any free-list
// linkage or neighbor traversal relies on the footer.
func (c Cursor) SetFooter() {
	writeWord(c.a, c.FooterAddr(), c.Header())
}

// Payload returns the address of the first payload byte (user data when
// allocated, next/prev link words when free).
func (c Cursor) Payload() arena.Address {
	return c.hdr + Word
}

// FromPayload returns the Cursor for the block that owns the given
// payload address, i.e. payload address minus one word.
func FromPayload(a *arena.Arena, payload arena.Address) Cursor {
	return Cursor{a: a, hdr: payload - Word}
}

// Next returns the Cursor for the block physically following this one,
// or false if that would land exactly on heapLast (the epilogue).
func (c Cursor) Next(heapLast arena.Address) (Cursor, bool) {
	n := c.hdr + arena.Address(c.Size())
	if n == heapLast {
		return Cursor{}, false
	}
	return Cursor{a: c.a, hdr: n}, true
}

// NextAddr returns the address immediately following this block,
// regardless of whether it is the epilogue.
func (c Cursor) NextAddr() arena.Address {
	return c.hdr + arena.Address(c.Size())
}

// LeftFooterAddr returns the address of the word immediately preceding
// this block's header — the footer of the physically preceding block,
// per the boundary-tag invariant (spec §3.3).
func (c Cursor) LeftFooterAddr() arena.Address {
	return c.hdr - Word
}

// LeftNeighbor decodes the boundary tag immediately before this block
// and returns the Cursor for the preceding physical block. Callers MUST
// first check that LeftFooterAddr() is not the heap's padding word.
func (c Cursor) LeftNeighbor() Cursor {
	footer := readWord(c.a, c.LeftFooterAddr())
	size := SizeFromWord(footer)
	return Cursor{a: c.a, hdr: c.hdr - arena.Address(size)}
}

// SetNext writes the free-list "next" link into this block's payload.
// The block MUST currently be free.
func (c Cursor) SetNext(next arena.Address) {
	writeWord(c.a, c.Payload(), uint64(next))
}

// SetPrev writes the free-list "prev" link into this block's payload.
// The block MUST currently be free.
func (c Cursor) SetPrev(prev arena.Address) {
	writeWord(c.a, c.Payload()+Word, uint64(prev))
}

// GetNext reads the free-list "next" link from this block's payload.
func (c Cursor) GetNext() arena.Address {
	return arena.Address(readWord(c.a, c.Payload()))
}

// GetPrev reads the free-list "prev" link from this block's payload.
func (c Cursor) GetPrev() arena.Address {
	return arena.Address(readWord(c.a, c.Payload()+Word))
}

// Bytes returns a slice view of this block's payload, sized to the
// number of bytes between the payload start and the footer.
func (c Cursor) Bytes() []byte {
	n := int(c.Size()) - DWord
	return c.a.At(c.Payload(), n)
}
