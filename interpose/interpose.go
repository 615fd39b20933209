package interpose

import (
	"sync/atomic"

	"go.uber.org/zap"

	enclavemath "github.com/wippyai/enclave-math"
	"github.com/wippyai/enclave-math/boundary"
)

// Stats counts calls that reached the engine allocator.
type Stats struct {
	Allocs   uint64
	Reallocs uint64
	Frees    uint64
}

// Allocator is a validating enclavemath.Allocator.
type Allocator struct {
	engine   enclavemath.Allocator
	guard    *boundary.Guard
	allocs   atomic.Uint64
	reallocs atomic.Uint64
	frees    atomic.Uint64
}

var _ enclavemath.Allocator = (*Allocator)(nil)

// Install wraps engine with guard. It is called once during initialization;
// the returned Allocator is what the numeric engine and staging use.
func Install(engine enclavemath.Allocator, guard *boundary.Guard) *Allocator {
	Logger().Debug("allocator interposer installed",
		zap.Stringer("region", guard.Region()))
	return &Allocator{engine: engine, guard: guard}
}

// Alloc delegates and requires the fresh block to be protected.
func (a *Allocator) Alloc(size uint32) (uint64, error) {
	ptr, err := a.engine.Alloc(size)
	if err != nil {
		return 0, err
	}
	a.guard.Require("alloc", ptr, uint64(size), boundary.Inside)
	a.allocs.Add(1)
	return ptr, nil
}

// Realloc validates ptr for oldSize bytes, delegates, and validates the result.
func (a *Allocator) Realloc(ptr uint64, oldSize, newSize uint32) (uint64, error) {
	if ptr != enclavemath.Null {
		a.guard.Require("realloc", ptr, uint64(oldSize), boundary.Inside)
	}
	out, err := a.engine.Realloc(ptr, oldSize, newSize)
	if err != nil {
		return 0, err
	}
	if out != enclavemath.Null {
		a.guard.Require("realloc", out, uint64(newSize), boundary.Inside)
	}
	a.reallocs.Add(1)
	return out, nil
}

// Free validates ptr for size bytes and delegates.
func (a *Allocator) Free(ptr uint64, size uint32) {
	a.guard.Require("free", ptr, uint64(size), boundary.Inside)
	a.engine.Free(ptr, size)
	a.frees.Add(1)
}

// Stats returns the call counters.
func (a *Allocator) Stats() Stats {
	return Stats{
		Allocs:   a.allocs.Load(),
		Reallocs: a.reallocs.Load(),
		Frees:    a.frees.Load(),
	}
}
