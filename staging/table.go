package staging

import (
	"sync"

	"go.uber.org/zap"

	enclavemath "github.com/wippyai/enclave-math"
	"github.com/wippyai/enclave-math/boundary"
	"github.com/wippyai/enclave-math/errors"
)

// Table keys slots by handle. Released handles are reused.
type Table struct {
	mem   enclavemath.Memory
	alloc enclavemath.Allocator
	guard *boundary.Guard

	slots    []*Slot
	freeList []Handle
	live     int
	closed   bool
	mu       sync.RWMutex

	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates an empty table whose slots share mem, alloc and guard.
func NewTable(mem enclavemath.Memory, alloc enclavemath.Allocator, guard *boundary.Guard) *Table {
	return &Table{
		mem:      mem,
		alloc:    alloc,
		guard:    guard,
		slots:    make([]*Slot, 0, 16),
		freeList: make([]Handle, 0, 4),
	}
}

// Open creates an empty slot and returns its handle.
func (t *Table) Open() (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, errors.Closed(errors.PhaseStage, "staging table")
	}

	s := NewSlot(t.mem, t.alloc, t.guard)
	s.notify = t.notify

	if len(t.freeList) > 0 {
		h := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		s.handle = h
		t.slots[h-1] = s
	} else {
		t.slots = append(t.slots, s)
		s.handle = Handle(len(t.slots))
	}
	t.live++
	return s.handle, nil
}

// Get returns the slot for h.
func (t *Table) Get(h Handle) (*Slot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, errors.Closed(errors.PhaseStage, "staging table")
	}
	if h == 0 || int(h) > len(t.slots) || t.slots[h-1] == nil {
		return nil, errors.NotFound(errors.PhaseStage, "slot", h)
	}
	return t.slots[h-1], nil
}

// Close discards the slot's pending result and releases the handle.
func (t *Table) Close(h Handle) error {
	t.mu.Lock()
	if h == 0 || int(h) > len(t.slots) || t.slots[h-1] == nil {
		t.mu.Unlock()
		return errors.NotFound(errors.PhaseStage, "slot", h)
	}
	s := t.slots[h-1]
	t.slots[h-1] = nil
	t.freeList = append(t.freeList, h)
	t.live--
	t.mu.Unlock()

	s.Discard()
	return nil
}

// Len returns the number of open slots.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// CloseAll discards every pending result and stops accepting new slots.
func (t *Table) CloseAll() {
	t.mu.Lock()
	slots := t.slots
	t.slots = nil
	t.freeList = nil
	t.live = 0
	t.closed = true
	t.mu.Unlock()

	discarded := 0
	for _, s := range slots {
		if s == nil {
			continue
		}
		if s.State() == StatePending {
			discarded++
		}
		s.Discard()
	}
	Logger().Debug("staging table closed", zap.Int("discarded", discarded))
}

// Subscribe adds an observer for slot events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. o must be comparable.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnSlotEvent(e)
	}
}
