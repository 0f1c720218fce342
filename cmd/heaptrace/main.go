// Package main provides a command-line trace replayer for the
// allocator: it parses a textual allocation trace, runs it against a
// fresh heap, and reports utilization and any checker violations.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/scigolib/minialloc"
	"github.com/scigolib/minialloc/internal/arena"
)

func main() {
	checkEvery := flag.Int("check-every", 1, "run the heap checker every N ops (0 disables)")
	prereserve := flag.Int64("prereserve", 0, "bytes to grow the arena by before handing it to Init, simulating a caller-provided heap")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: heaptrace [flags] <trace-file>")
		fmt.Println("Flags:")
		flag.PrintDefaults()
		return
	}

	f, err := os.Open(args[0])
	if err != nil {
		log.Fatalf("Failed to open trace: %v", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close trace: %v", err)
		}
	}()

	ops, err := minialloc.ParseTrace(f)
	if err != nil {
		log.Fatalf("Failed to parse trace: %v", err)
	}

	var opts []minialloc.Option
	if *prereserve > 0 {
		a := arena.New()
		if _, err := a.Sbrk(*prereserve); err != nil {
			log.Fatalf("Failed to pre-reserve arena: %v", err)
		}
		opts = append(opts, minialloc.WithArena(a))
	}

	h := minialloc.NewHeap(opts...)
	if err := h.Init(); err != nil {
		log.Fatalf("Failed to initialize heap: %v", err)
	}

	stats, err := h.Replay(ops, *checkEvery)
	if err != nil {
		fmt.Printf("Checker violations:\n%v\n", err)
	}

	fmt.Printf("ops replayed:    %d\n", len(ops))
	fmt.Printf("peak heap bytes: %d\n", stats.PeakHeapBytes)
	fmt.Printf("live bytes:      %d\n", stats.LiveBytes)
	fmt.Printf("free bytes:      %d\n", stats.FreeBytes)

	if err != nil {
		os.Exit(1)
	}
}
