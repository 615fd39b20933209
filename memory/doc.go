// Package memory provides the address space that both sides of the trust
// boundary live in.
//
// # Segments
//
// A Segment is a wazero linear memory mapped at a fixed virtual base address.
// Each one is backed by a memory-only core module instantiated in a shared
// wazero runtime, so segments are isolated byte arrays with hard bounds:
//
//	seg, err := memory.NewSegment(ctx, rt, "enclave", 0x4000_0000, 4, 16)
//	// seg covers [0x4000_0000, 0x4000_0000 + 4*64KiB), growable to 16 pages
//
// # Space
//
// A Space resolves virtual addresses to segments. An access that falls in a
// gap, or that spans two segments, fails.
//
// # Heap
//
// Heap is a first-fit allocator over a single segment, growing the segment
// by whole pages when it runs out of room. It implements
// enclavemath.Allocator.
//
// Segments and the heap are safe for concurrent use.
package memory
