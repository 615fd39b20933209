package enclave

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	enclavemath "github.com/wippyai/enclave-math"
	"github.com/wippyai/enclave-math/boundary"
	"github.com/wippyai/enclave-math/codec"
	"github.com/wippyai/enclave-math/errors"
	"github.com/wippyai/enclave-math/interpose"
	"github.com/wippyai/enclave-math/staging"
)

// Memory is the address space the enclave reads arguments from and writes
// results to. It spans both sides of the boundary.
type Memory interface {
	enclavemath.Memory
	ReadString(addr uint64, limit uint32) (string, error)
}

// Enclave is a protected execution environment with a default context.
type Enclave struct {
	mem      Memory
	engine   enclavemath.Allocator
	guard    *boundary.Guard
	codec    *codec.Codec
	metrics  *Metrics
	maxInput uint32

	initOnce    sync.Once
	initErr     error
	initialized atomic.Bool
	alloc       *interpose.Allocator
	table       *staging.Table
	def         *Context

	contexts map[staging.Handle]*Context
	closed   bool
	mu       sync.RWMutex
}

// New creates an enclave over mem whose protected memory is region and whose
// numeric engine allocates from engine. The enclave is unusable until
// Initialize is called.
func New(mem Memory, engine enclavemath.Allocator, region boundary.Region, cfg *Config) (*Enclave, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if mem == nil {
		return nil, errors.NilPointer(errors.PhaseLaunch, "memory")
	}
	if engine == nil {
		return nil, errors.NilPointer(errors.PhaseLaunch, "allocator")
	}
	if region.Size == 0 || region.Base+region.Size < region.Base {
		return nil, errors.OutOfBounds(errors.PhaseLaunch, region.Base, region.Size, "invalid protected region")
	}

	radix := cfg.Radix
	if radix == 0 {
		radix = codec.DefaultRadix
	}
	c, err := codec.New(radix)
	if err != nil {
		return nil, errors.WithOp(err, "new")
	}

	maxInput := cfg.MaxInputLength
	if maxInput == 0 {
		maxInput = DefaultMaxInputLength
	}
	if maxInput == math.MaxUint32 {
		return nil, errors.InvalidInput(errors.PhaseLaunch, "max input length leaves no room for the terminator")
	}

	var inUse func() uint64
	if h, ok := engine.(interface{ InUse() uint64 }); ok {
		inUse = h.InUse
	}
	metrics, err := NewMetrics(cfg.Registerer, inUse)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLaunch, errors.KindInvalidInput, err, "register metrics")
	}

	return &Enclave{
		mem:      mem,
		engine:   engine,
		guard:    boundary.NewGuard(region, cfg.OnViolation),
		codec:    c,
		metrics:  metrics,
		maxInput: maxInput,
		contexts: make(map[staging.Handle]*Context),
	}, nil
}

// Initialize installs the allocator interposer and opens the default
// context. Calls after the first return the first call's result.
func (e *Enclave) Initialize() error {
	e.initOnce.Do(func() {
		e.alloc = interpose.Install(e.engine, e.guard)
		e.table = staging.NewTable(e.mem, e.alloc, e.guard)
		e.table.Subscribe(e.metrics)

		def, err := e.open()
		if err != nil {
			e.initErr = err
			return
		}
		e.def = def
		e.initialized.Store(true)
		Logger().Debug("enclave initialized",
			zap.Stringer("region", e.guard.Region()),
			zap.Int("radix", e.codec.Radix()))
	})
	return e.initErr
}

func (e *Enclave) ready() error {
	if !e.initialized.Load() {
		return errors.NotInitialized(errors.PhaseCompute, "enclave")
	}
	return nil
}

// Region returns the protected region.
func (e *Enclave) Region() boundary.Region {
	return e.guard.Region()
}

// Radix returns the serialization radix.
func (e *Enclave) Radix() int {
	return e.codec.Radix()
}

// Metrics returns the enclave's collectors.
func (e *Enclave) Metrics() *Metrics {
	return e.metrics
}

// AllocStats returns the interposed allocator's counters.
func (e *Enclave) AllocStats() interpose.Stats {
	if e.ready() != nil {
		return interpose.Stats{}
	}
	return e.alloc.Stats()
}

// NewContext opens an execution context with its own result slot.
func (e *Enclave) NewContext() (*Context, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.open()
}

func (e *Enclave) open() (*Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errors.Closed(errors.PhaseLaunch, "enclave")
	}

	h, err := e.table.Open()
	if err != nil {
		return nil, err
	}
	slot, err := e.table.Get(h)
	if err != nil {
		return nil, err
	}
	c := newContext(e, h, slot)
	e.contexts[h] = c
	Logger().Debug("context opened",
		zap.Stringer("context", c.id),
		zap.Uint32("handle", uint32(h)))
	return c, nil
}

// Context returns the open context for h.
func (e *Enclave) Context(h staging.Handle) (*Context, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.contexts[h]
	if !ok {
		return nil, errors.NotFound(errors.PhaseCompute, "context", h)
	}
	return c, nil
}

// Contexts returns the number of open contexts, the default one included.
func (e *Enclave) Contexts() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.contexts)
}

// CloseContext discards the context's pending result and closes it. The
// default context cannot be closed.
func (e *Enclave) CloseContext(h staging.Handle) error {
	e.mu.Lock()
	c, ok := e.contexts[h]
	if !ok {
		e.mu.Unlock()
		return errors.NotFound(errors.PhaseCompute, "context", h)
	}
	if c == e.def {
		e.mu.Unlock()
		return errors.InvalidInput(errors.PhaseCompute, "default context cannot be closed")
	}
	delete(e.contexts, h)
	e.mu.Unlock()

	c.markClosed()
	return e.table.Close(h)
}

// Close releases every pending result. The enclave rejects calls afterwards.
func (e *Enclave) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	contexts := e.contexts
	e.contexts = make(map[staging.Handle]*Context)
	e.mu.Unlock()

	for _, c := range contexts {
		c.markClosed()
	}
	if e.table != nil {
		e.table.CloseAll()
	}
	return nil
}

func (e *Enclave) defaultContext() (*Context, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.def, nil
}

// Add stages a + b on the default context.
func (e *Enclave) Add(ctx context.Context, a, b uint64) (uint64, error) {
	c, err := e.defaultContext()
	if err != nil {
		return 0, err
	}
	return c.Add(ctx, a, b)
}

// Multiply stages a * b on the default context.
func (e *Enclave) Multiply(ctx context.Context, a, b uint64) (uint64, error) {
	c, err := e.defaultContext()
	if err != nil {
		return 0, err
	}
	return c.Multiply(ctx, a, b)
}

// Divide stages floor(a / b) on the default context.
func (e *Enclave) Divide(ctx context.Context, a, b uint64) (uint64, error) {
	c, err := e.defaultContext()
	if err != nil {
		return 0, err
	}
	return c.Divide(ctx, a, b)
}

// DecimalDivide stages a / b to digits significant digits on the default context.
func (e *Enclave) DecimalDivide(ctx context.Context, a, b uint64, digits int) (uint64, error) {
	c, err := e.defaultContext()
	if err != nil {
		return 0, err
	}
	return c.DecimalDivide(ctx, a, b, digits)
}

// EstimateConstant stages pi on the default context.
func (e *Enclave) EstimateConstant(ctx context.Context, digits int) (uint64, error) {
	c, err := e.defaultContext()
	if err != nil {
		return 0, err
	}
	return c.EstimateConstant(ctx, digits)
}

// ResultSize returns the default context's pending result length.
func (e *Enclave) ResultSize() uint64 {
	c, err := e.defaultContext()
	if err != nil {
		return 0
	}
	return c.ResultSize()
}

// FetchResult copies the default context's pending result to dst.
func (e *Enclave) FetchResult(ctx context.Context, dst, n uint64) error {
	c, err := e.defaultContext()
	if err != nil {
		return err
	}
	return c.FetchResult(ctx, dst, n)
}
