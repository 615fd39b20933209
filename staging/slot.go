package staging

import (
	"sync"

	"go.uber.org/zap"

	enclavemath "github.com/wippyai/enclave-math"
	"github.com/wippyai/enclave-math/boundary"
	"github.com/wippyai/enclave-math/errors"
)

// Slot holds at most one pending result in protected memory.
type Slot struct {
	mem    enclavemath.Memory
	alloc  enclavemath.Allocator
	guard  *boundary.Guard
	notify func(Event)

	handle Handle
	ptr    uint64
	size   uint64
	state  State
	mu     sync.Mutex
}

// NewSlot creates an empty slot. alloc must hand out protected memory; mem
// must reach both sides of the boundary.
func NewSlot(mem enclavemath.Memory, alloc enclavemath.Allocator, guard *boundary.Guard) *Slot {
	return &Slot{mem: mem, alloc: alloc, guard: guard}
}

// Handle returns the slot's key in its table, 0 for a standalone slot.
func (s *Slot) Handle() Handle {
	return s.handle
}

// State returns the current state.
func (s *Slot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Size returns the pending result length, 0 when empty.
func (s *Slot) Size() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Stage copies data plus a terminator into freshly allocated protected memory
// and makes it the pending result, releasing any previous one. On failure
// nothing is staged and the previous result is kept.
func (s *Slot) Stage(data []byte) error {
	n := uint64(len(data)) + 1
	if n > uint64(^uint32(0)) {
		return errors.New(errors.PhaseStage, errors.KindOverflow).
			Detail("result of %d bytes too large to stage", len(data)).
			Build()
	}

	ptr, err := s.alloc.Alloc(uint32(n))
	if err != nil {
		return errors.WithOp(err, "stage")
	}
	if !s.guard.Check(ptr, n, boundary.Inside) {
		// Only reachable with an allocator that is not interposed.
		s.alloc.Free(ptr, uint32(n))
		return errors.OutOfBounds(errors.PhaseStage, ptr, n, "staging block not in protected memory")
	}
	buf := make([]byte, n)
	copy(buf, data)
	if err := s.mem.Write(ptr, buf); err != nil {
		s.alloc.Free(ptr, uint32(n))
		return errors.Wrap(errors.PhaseStage, errors.KindOutOfBounds, err, "write staged result")
	}

	s.mu.Lock()
	prevPtr, prevSize, had := s.ptr, s.size, s.state == StatePending
	s.ptr, s.size, s.state = ptr, uint64(len(data)), StatePending
	s.mu.Unlock()

	if had {
		s.alloc.Free(prevPtr, uint32(prevSize+1))
		s.emit(EventSuperseded, prevSize)
	}
	s.emit(EventStaged, uint64(len(data)))
	return nil
}

// Discard releases the pending result, if any.
func (s *Slot) Discard() {
	s.mu.Lock()
	if s.state != StatePending {
		s.mu.Unlock()
		return
	}
	ptr, size := s.ptr, s.size
	s.ptr, s.size, s.state = 0, 0, StateEmpty
	s.mu.Unlock()

	s.alloc.Free(ptr, uint32(size+1))
	s.emit(EventDiscarded, size)
}

// Fetch copies exactly n bytes of the pending result plus a terminator to
// dst, which must lie outside the protected region, then releases the result.
func (s *Slot) Fetch(dst, n uint64) error {
	s.mu.Lock()
	size, err := s.fetch(dst, n)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	Logger().Debug("result fetched",
		zap.Uint32("slot", uint32(s.handle)),
		zap.Uint64("ptr", dst),
		zap.Uint64("len", n))
	s.emit(EventFetched, size)
	return nil
}

func (s *Slot) fetch(dst, n uint64) (uint64, error) {
	if s.state != StatePending {
		return 0, errors.Empty(errors.PhaseFetch)
	}
	if n > s.size {
		return 0, errors.SizeMismatch(errors.PhaseFetch, n, s.size)
	}
	if n == 0 {
		return 0, errors.New(errors.PhaseFetch, errors.KindEmpty).
			Detail("zero-length fetch").
			Build()
	}
	if dst == enclavemath.Null {
		return 0, errors.NilPointer(errors.PhaseFetch, "destination")
	}
	if !s.guard.Check(s.ptr, n, boundary.Inside) {
		return 0, errors.OutOfBounds(errors.PhaseFetch, s.ptr, n, "staged result not in protected memory")
	}
	if !s.guard.Check(dst, n+1, boundary.Outside) {
		return 0, errors.OutOfBounds(errors.PhaseFetch, dst, n+1, "destination overlaps protected memory")
	}

	data, err := s.mem.Read(s.ptr, uint32(n))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseFetch, errors.KindOutOfBounds, err, "read staged result")
	}
	if err := s.mem.Write(dst, append(data, 0)); err != nil {
		return 0, errors.Wrap(errors.PhaseFetch, errors.KindOutOfBounds, err, "write destination")
	}

	ptr, size := s.ptr, s.size
	s.ptr, s.size, s.state = 0, 0, StateEmpty
	s.alloc.Free(ptr, uint32(size+1))
	return size, nil
}

func (s *Slot) emit(t EventType, size uint64) {
	if s.notify != nil {
		s.notify(Event{Handle: s.handle, Type: t, Size: size})
	}
}
