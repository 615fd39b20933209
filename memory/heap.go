package memory

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	enclavemath "github.com/wippyai/enclave-math"
	"github.com/wippyai/enclave-math/errors"
)

var _ enclavemath.Allocator = (*Heap)(nil)

const heapAlign = 8

type block struct {
	addr uint64
	size uint64
}

// Heap is a first-fit allocator over one segment. Block metadata is kept
// outside the segment, so its contents are never trusted for bookkeeping.
type Heap struct {
	seg   *Segment
	free  []block // sorted by addr, coalesced
	used  map[uint64]uint64
	inUse uint64
	mu    sync.Mutex
}

// NewHeap manages the whole of seg.
func NewHeap(seg *Segment) *Heap {
	start := seg.Base()
	if start == 0 {
		start = heapAlign
	}
	end := seg.Base() + seg.Size()
	h := &Heap{
		seg:  seg,
		used: make(map[uint64]uint64),
	}
	if end > start {
		h.free = []block{{addr: start, size: end - start}}
	}
	return h
}

// Segment returns the segment the heap manages.
func (h *Heap) Segment() *Segment {
	return h.seg
}

func alignUp(n uint64) uint64 {
	return (n + heapAlign - 1) &^ (heapAlign - 1)
}

// Alloc reserves size bytes and returns the block address.
func (h *Heap) Alloc(size uint32) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alloc(size)
}

func (h *Heap) alloc(size uint32) (uint64, error) {
	n := alignUp(uint64(size))
	if n == 0 {
		n = heapAlign
	}

	for attempt := 0; attempt < 2; attempt++ {
		for i, b := range h.free {
			if b.size < n {
				continue
			}
			if b.size == n {
				h.free = append(h.free[:i], h.free[i+1:]...)
			} else {
				h.free[i] = block{addr: b.addr + n, size: b.size - n}
			}
			h.used[b.addr] = n
			h.inUse += n
			return b.addr, nil
		}
		if err := h.grow(n); err != nil {
			return 0, errors.AllocationFailed(errors.PhaseAlloc, size, err)
		}
	}
	return 0, errors.AllocationFailed(errors.PhaseAlloc, size, fmt.Errorf("heap %s exhausted", h.seg.Name()))
}

// grow extends the segment far enough to fit n more bytes at its end.
func (h *Heap) grow(n uint64) error {
	pages := uint32((n + PageSize - 1) / PageSize)
	prev, err := h.seg.Grow(pages)
	if err != nil {
		return err
	}
	h.release(h.seg.Base()+prev, uint64(pages)*PageSize)
	Logger().Debug("heap grown",
		zap.String("segment", h.seg.Name()),
		zap.Uint32("pages", pages))
	return nil
}

// Realloc resizes the block at ptr. A zero ptr allocates; a zero newSize frees.
func (h *Heap) Realloc(ptr uint64, oldSize, newSize uint32) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ptr == 0 {
		return h.alloc(newSize)
	}
	cur, ok := h.used[ptr]
	if !ok {
		return 0, errors.New(errors.PhaseAlloc, errors.KindNotFound).
			Range(ptr, uint64(oldSize)).
			Detail("realloc of unallocated block").
			Build()
	}
	if newSize == 0 {
		h.freeBlock(ptr, cur)
		return 0, nil
	}
	if alignUp(uint64(newSize)) <= cur {
		return ptr, nil
	}

	dst, err := h.alloc(newSize)
	if err != nil {
		return 0, err
	}
	keep := cur
	if uint64(oldSize) < keep {
		keep = uint64(oldSize)
	}
	if keep > 0 {
		data, err := h.seg.Read(ptr, uint32(keep))
		if err != nil {
			h.freeBlock(dst, h.used[dst])
			return 0, err
		}
		if err := h.seg.Write(dst, data); err != nil {
			h.freeBlock(dst, h.used[dst])
			return 0, err
		}
	}
	h.freeBlock(ptr, cur)
	return dst, nil
}

// Free releases the block at ptr. Unknown addresses are ignored.
func (h *Heap) Free(ptr uint64, size uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.used[ptr]
	if !ok {
		Logger().Warn("free of unallocated block",
			zap.String("segment", h.seg.Name()),
			zap.Uint64("ptr", ptr),
			zap.Uint32("size", size))
		return
	}
	h.freeBlock(ptr, cur)
}

func (h *Heap) freeBlock(ptr, size uint64) {
	delete(h.used, ptr)
	h.inUse -= size
	h.release(ptr, size)
}

// release returns [addr, addr+size) to the free list, merging neighbours.
func (h *Heap) release(addr, size uint64) {
	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].addr > addr })
	h.free = append(h.free, block{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = block{addr: addr, size: size}

	if i+1 < len(h.free) && h.free[i].addr+h.free[i].size == h.free[i+1].addr {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].addr+h.free[i-1].size == h.free[i].addr {
		h.free[i-1].size += h.free[i].size
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
}

// InUse returns the number of bytes currently allocated.
func (h *Heap) InUse() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inUse
}

// Allocations returns the number of live blocks.
func (h *Heap) Allocations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.used)
}
