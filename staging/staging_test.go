package staging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"

	"github.com/wippyai/enclave-math/boundary"
	"github.com/wippyai/enclave-math/errors"
	"github.com/wippyai/enclave-math/interpose"
	"github.com/wippyai/enclave-math/memory"
)

const (
	hostBase      = 0x1000_0000
	protectedBase = 0x4000_0000
)

type env struct {
	space *memory.Space
	host  *memory.Heap
	heap  *memory.Heap
	alloc *interpose.Allocator
	guard *boundary.Guard
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	hostSeg, err := memory.NewSegment(ctx, rt, "host", hostBase, 1, 1)
	require.NoError(t, err)
	protSeg, err := memory.NewSegment(ctx, rt, "protected", protectedBase, 1, 2)
	require.NoError(t, err)

	space := memory.NewSpace()
	require.NoError(t, space.Map(hostSeg))
	require.NoError(t, space.Map(protSeg))

	guard := boundary.NewGuard(boundary.Region{Base: protectedBase, Size: protSeg.Reserved()}, func(v *boundary.Violation) {
		t.Logf("violation: %v", v)
	})
	heap := memory.NewHeap(protSeg)
	return &env{
		space: space,
		host:  memory.NewHeap(hostSeg),
		heap:  heap,
		alloc: interpose.Install(heap, guard),
		guard: guard,
	}
}

func (e *env) slot() *Slot {
	return NewSlot(e.space, e.alloc, e.guard)
}

func (e *env) readHost(t *testing.T, addr uint64, limit uint32) string {
	t.Helper()
	s, err := e.space.ReadString(addr, limit)
	require.NoError(t, err)
	return s
}

func TestSlot_FetchOnce(t *testing.T) {
	e := newEnv(t)
	s := e.slot()

	assert.Equal(t, StateEmpty, s.State())
	assert.Zero(t, s.Size())

	require.NoError(t, s.Stage([]byte("579")))
	assert.Equal(t, StatePending, s.State())
	assert.Equal(t, uint64(3), s.Size())

	dst, err := e.host.Alloc(4)
	require.NoError(t, err)

	require.NoError(t, s.Fetch(dst, 3))
	assert.Equal(t, "579", e.readHost(t, dst, 8))
	assert.Equal(t, StateEmpty, s.State())
	assert.Zero(t, e.heap.InUse(), "staged block released")

	err = s.Fetch(dst, 3)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseFetch, Kind: errors.KindEmpty})
}

func TestSlot_OversizedFetchKeepsState(t *testing.T) {
	e := newEnv(t)
	s := e.slot()
	require.NoError(t, s.Stage([]byte("-30")))

	dst, err := e.host.Alloc(16)
	require.NoError(t, err)

	err = s.Fetch(dst, 4)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseFetch, Kind: errors.KindSizeMismatch})
	assert.Equal(t, StatePending, s.State())
	assert.Equal(t, uint64(3), s.Size())

	require.NoError(t, s.Fetch(dst, 3))
	assert.Equal(t, "-30", e.readHost(t, dst, 8))
}

func TestSlot_PartialFetch(t *testing.T) {
	e := newEnv(t)
	s := e.slot()
	require.NoError(t, s.Stage([]byte("31415")))

	dst, err := e.host.Alloc(8)
	require.NoError(t, err)
	require.NoError(t, s.Fetch(dst, 2))
	assert.Equal(t, "31", e.readHost(t, dst, 8))
	assert.Equal(t, StateEmpty, s.State())
	assert.Zero(t, e.heap.InUse())
}

func TestSlot_FetchRejects(t *testing.T) {
	tests := []struct {
		name string
		dst  func(e *env) uint64
		n    uint64
		kind errors.Kind
	}{
		{"zero length", func(e *env) uint64 { return hostBase + 64 }, 0, errors.KindEmpty},
		{"null destination", func(*env) uint64 { return 0 }, 3, errors.KindNilPointer},
		{"destination inside", func(*env) uint64 { return protectedBase + 512 }, 3, errors.KindOutOfBounds},
		{"destination straddles", func(*env) uint64 { return protectedBase - 2 }, 3, errors.KindOutOfBounds},
		{"destination unmapped", func(*env) uint64 { return 0x2000_0000 }, 3, errors.KindOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			s := e.slot()
			require.NoError(t, s.Stage([]byte("123")))

			err := s.Fetch(tt.dst(e), tt.n)
			assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseFetch, Kind: tt.kind})
			assert.Equal(t, StatePending, s.State())
			assert.Equal(t, uint64(3), s.Size())
		})
	}
}

func TestSlot_Supersede(t *testing.T) {
	e := newEnv(t)
	s := e.slot()

	require.NoError(t, s.Stage([]byte("first")))
	require.NoError(t, s.Stage([]byte("2nd")))
	assert.Equal(t, uint64(3), s.Size())
	assert.Equal(t, 1, e.heap.Allocations(), "first value released")

	dst, err := e.host.Alloc(8)
	require.NoError(t, err)
	err = s.Fetch(dst, 5)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseFetch, Kind: errors.KindSizeMismatch})

	require.NoError(t, s.Fetch(dst, 3))
	assert.Equal(t, "2nd", e.readHost(t, dst, 8))
}

func TestSlot_Discard(t *testing.T) {
	e := newEnv(t)
	s := e.slot()

	s.Discard()
	require.NoError(t, s.Stage([]byte("1")))
	s.Discard()
	assert.Equal(t, StateEmpty, s.State())
	assert.Zero(t, e.heap.InUse())
	assert.Equal(t, interpose.Stats{Allocs: 1, Frees: 1}, e.alloc.Stats())
}

func TestSlot_StageAllocationFailure(t *testing.T) {
	e := newEnv(t)
	s := e.slot()
	require.NoError(t, s.Stage([]byte("7")))

	huge := make([]byte, 3*memory.PageSize)
	err := s.Stage(huge)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindAllocation})
	assert.Equal(t, uint64(1), s.Size(), "previous result kept")
}

type recorder struct {
	events []Event
}

func (r *recorder) OnSlotEvent(e Event) {
	r.events = append(r.events, e)
}

func TestTable_Lifecycle(t *testing.T) {
	e := newEnv(t)
	tbl := NewTable(e.space, e.alloc, e.guard)
	rec := &recorder{}
	tbl.Subscribe(rec)

	h1, err := tbl.Open()
	require.NoError(t, err)
	h2, err := tbl.Open()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, tbl.Len())

	s1, err := tbl.Get(h1)
	require.NoError(t, err)
	s2, err := tbl.Get(h2)
	require.NoError(t, err)

	require.NoError(t, s1.Stage([]byte("579")))
	require.NoError(t, s2.Stage([]byte("-30")))
	require.NoError(t, s2.Stage([]byte("-3")))

	dst, err := e.host.Alloc(8)
	require.NoError(t, err)
	require.NoError(t, s1.Fetch(dst, 3))
	assert.Equal(t, "579", e.readHost(t, dst, 8))
	assert.Equal(t, uint64(2), s2.Size(), "slots are independent")

	require.NoError(t, tbl.Close(h2))
	assert.Equal(t, 1, tbl.Len())
	_, err = tbl.Get(h2)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseStage, Kind: errors.KindNotFound})

	h3, err := tbl.Open()
	require.NoError(t, err)
	assert.Equal(t, h2, h3, "handles are reused")

	assert.Equal(t, []Event{
		{Handle: h1, Type: EventStaged, Size: 3},
		{Handle: h2, Type: EventStaged, Size: 3},
		{Handle: h2, Type: EventSuperseded, Size: 3},
		{Handle: h2, Type: EventStaged, Size: 2},
		{Handle: h1, Type: EventFetched, Size: 3},
		{Handle: h2, Type: EventDiscarded, Size: 2},
	}, rec.events)
}

func TestTable_CloseAll(t *testing.T) {
	e := newEnv(t)
	tbl := NewTable(e.space, e.alloc, e.guard)

	h, err := tbl.Open()
	require.NoError(t, err)
	s, err := tbl.Get(h)
	require.NoError(t, err)
	require.NoError(t, s.Stage([]byte("42")))

	tbl.CloseAll()
	assert.Zero(t, tbl.Len())
	assert.Zero(t, e.heap.InUse())

	_, err = tbl.Open()
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseStage, Kind: errors.KindClosed})
	_, err = tbl.Get(h)
	assert.Error(t, err)

	assert.ErrorIs(t, tbl.Close(0), &errors.Error{Phase: errors.PhaseStage, Kind: errors.KindNotFound})
}
