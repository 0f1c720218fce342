package minialloc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/scigolib/minialloc/internal/arena"
	"github.com/scigolib/minialloc/internal/block"
)

// Op is one line of a textual allocation trace: an allocation, free,
// realloc, or calloc request tagged with a caller-chosen id so later
// ops in the same trace can refer back to a previous result.
//
//	a <id> <size>        malloc(size), remembered as id
//	f <id>               free the address remembered as id
//	r <id> <size>        realloc(address remembered as id, size), replaces id
//	c <id> <n> <size>    calloc(n, size), remembered as id
type Op struct {
	Kind         byte
	ID           int
	Size1, Size2 uint64
}

// ParseTrace reads a textual trace, one op per line, blank lines and
// lines starting with # ignored. It is the Go-native analogue of the
// reference allocator's companion trace-driver format mentioned
// alongside mm.c, reworked as text since there is no wire format here
// to match.
func ParseTrace(r io.Reader) ([]Op, error) {
	var ops []Op
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		op, err := parseOpFields(fields)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", lineNo, err)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	return ops, nil
}

func parseOpFields(fields []string) (Op, error) {
	if len(fields) < 2 {
		return Op{}, fmt.Errorf("expected at least 2 fields, got %d", len(fields))
	}

	kind := fields[0][0]
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return Op{}, fmt.Errorf("invalid id %q: %w", fields[1], err)
	}

	switch kind {
	case 'a', 'r':
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("%q expects <id> <size>", fields[0])
		}
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return Op{}, fmt.Errorf("invalid size %q: %w", fields[2], err)
		}
		return Op{Kind: kind, ID: id, Size1: size}, nil
	case 'f':
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("%q expects <id>", fields[0])
		}
		return Op{Kind: kind, ID: id}, nil
	case 'c':
		if len(fields) != 4 {
			return Op{}, fmt.Errorf("%q expects <id> <n> <size>", fields[0])
		}
		n, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return Op{}, fmt.Errorf("invalid n %q: %w", fields[2], err)
		}
		size, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return Op{}, fmt.Errorf("invalid size %q: %w", fields[3], err)
		}
		return Op{Kind: kind, ID: id, Size1: n, Size2: size}, nil
	default:
		return Op{}, fmt.Errorf("unknown op %q", fields[0])
	}
}

// Stats summarizes a Replay run: the peak heap size reached, the live
// (allocated) byte total at the end of the run, and the free byte total
// at the end of the run. It is read from the same counters the checker
// already walks, not new allocator-side bookkeeping — the allocator
// itself still tracks no statistics spec.md §1 places out of scope.
type Stats struct {
	PeakHeapBytes uint64
	LiveBytes     uint64
	FreeBytes     uint64
}

// Replay executes ops against h in order, substituting each op's
// remembered id for the address a previous 'a'/'r'/'c' op returned for
// that id. If checkEvery > 0, the heap checker runs after every
// checkEvery ops (and once more at the end); any diagnostic lines it
// returns are collected into the returned error, which Replay keeps
// executing past (diagnostics are reported, not fatal, per spec.md §7's
// "checker never aborts").
func (h *Heap) Replay(ops []Op, checkEvery int) (Stats, error) {
	ids := make(map[int]arena.Address)
	var diagnostics []string

	for i, op := range ops {
		switch op.Kind {
		case 'a':
			addr, ok := h.Malloc(op.Size1)
			if ok {
				ids[op.ID] = addr
			}
		case 'f':
			if addr, found := ids[op.ID]; found {
				h.Free(addr)
				delete(ids, op.ID)
			}
		case 'r':
			addr := ids[op.ID] // zero value (not found) behaves as realloc(null, size)
			newAddr, ok := h.Realloc(addr, op.Size1)
			if ok {
				ids[op.ID] = newAddr
			} else {
				delete(ids, op.ID)
			}
		case 'c':
			addr, ok := h.Calloc(op.Size1, op.Size2)
			if ok {
				ids[op.ID] = addr
			}
		}

		if checkEvery > 0 && (i+1)%checkEvery == 0 {
			diagnostics = append(diagnostics, h.Check(i+1)...)
		}
	}
	if checkEvery > 0 {
		diagnostics = append(diagnostics, h.Check(len(ops))...)
	}

	stats := h.stats(ids)

	var err error
	if len(diagnostics) > 0 {
		err = fmt.Errorf("heap checker reported %d violation(s):\n%s", len(diagnostics), strings.Join(diagnostics, "\n"))
	}
	return stats, err
}

func (h *Heap) stats(live map[int]arena.Address) Stats {
	var liveBytes uint64
	for _, addr := range live {
		liveBytes += uint64(len(h.Bytes(addr)))
	}

	var freeBytes uint64
	h.fl.Walk(func(c block.Cursor) bool {
		freeBytes += c.Size()
		return true
	})

	return Stats{
		PeakHeapBytes: h.a.Size(),
		LiveBytes:     liveBytes,
		FreeBytes:     freeBytes,
	}
}
