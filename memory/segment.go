package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/enclave-math/errors"
)

// PageSize is the size of one linear memory page.
const PageSize = 65536

// Segment is a linear memory mapped at a virtual base address.
type Segment struct {
	mem      api.Memory
	mod      api.Module
	compiled wazero.CompiledModule
	name     string
	base     uint64
	maxPages uint32
	mu       sync.RWMutex
}

// NewSegment instantiates a memory of pages pages in rt and maps it at base.
// maxPages bounds growth; 0 means the segment cannot grow.
func NewSegment(ctx context.Context, rt wazero.Runtime, name string, base uint64, pages, maxPages uint32) (*Segment, error) {
	if pages == 0 {
		return nil, errors.InvalidInput(errors.PhaseMemory, "segment needs at least one page")
	}
	if maxPages < pages {
		maxPages = pages
	}
	if base+uint64(maxPages)*PageSize < base {
		return nil, errors.OutOfBounds(errors.PhaseMemory, base, uint64(maxPages)*PageSize, "segment wraps the address space")
	}

	compiled, err := rt.CompileModule(ctx, memoryModule(pages, maxPages))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "compile segment module")
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, fmt.Sprintf("instantiate segment %q", name))
	}
	mem := mod.ExportedMemory(exportName)
	if mem == nil {
		_ = mod.Close(ctx)
		_ = compiled.Close(ctx)
		return nil, errors.NotFound(errors.PhaseMemory, "exported memory", name)
	}

	return &Segment{
		mem:      mem,
		mod:      mod,
		compiled: compiled,
		name:     name,
		base:     base,
		maxPages: maxPages,
	}, nil
}

// Name returns the segment's module name.
func (s *Segment) Name() string {
	return s.name
}

// Base returns the first virtual address of the segment.
func (s *Segment) Base() uint64 {
	return s.base
}

// Size returns the current size in bytes.
func (s *Segment) Size() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(s.mem.Size())
}

// Reserved returns the size in bytes the segment may grow to.
func (s *Segment) Reserved() uint64 {
	return uint64(s.maxPages) * PageSize
}

// Contains reports whether [addr, addr+n) lies in the current extent.
func (s *Segment) Contains(addr, n uint64) bool {
	end := addr + n
	if end < addr {
		return false
	}
	return addr >= s.base && end <= s.base+s.Size()
}

// Grow adds delta pages and returns the previous size in bytes.
func (s *Segment) Grow(delta uint32) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.mem.Grow(delta)
	if !ok {
		return 0, errors.AllocationFailed(errors.PhaseMemory, delta*PageSize,
			fmt.Errorf("segment %q at page limit %d", s.name, s.maxPages))
	}
	return uint64(prev) * PageSize, nil
}

// Read copies length bytes starting at addr.
func (s *Segment) Read(addr uint64, length uint32) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	off, err := s.offset(addr, uint64(length))
	if err != nil {
		return nil, err
	}
	view, ok := s.mem.Read(off, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseMemory, addr, uint64(length), "read beyond segment "+s.name)
	}
	out := make([]byte, length)
	copy(out, view)
	return out, nil
}

// Write copies data to addr.
func (s *Segment) Write(addr uint64, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	off, err := s.offset(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	if !s.mem.Write(off, data) {
		return errors.OutOfBounds(errors.PhaseMemory, addr, uint64(len(data)), "write beyond segment "+s.name)
	}
	return nil
}

func (s *Segment) offset(addr, n uint64) (uint32, error) {
	end := addr + n
	if addr < s.base || end < addr || end > s.base+uint64(s.mem.Size()) {
		return 0, errors.OutOfBounds(errors.PhaseMemory, addr, n, "outside segment "+s.name)
	}
	return uint32(addr - s.base), nil
}

// Close releases the backing module.
func (s *Segment) Close(ctx context.Context) error {
	err := s.mod.Close(ctx)
	if cerr := s.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
