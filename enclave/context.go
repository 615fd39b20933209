package enclave

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/enclave-math/arith"
	"github.com/wippyai/enclave-math/codec"
	"github.com/wippyai/enclave-math/errors"
	"github.com/wippyai/enclave-math/staging"
)

// Call names used in errors, logs and metrics.
const (
	OpAdd              = "add"
	OpMultiply         = "multiply"
	OpDivide           = "divide"
	OpDecimalDivide    = "decimal_divide"
	OpEstimateConstant = "estimate_constant"
	OpFetchResult      = "fetch_result"
)

// Context is an execution context with a single pending result.
type Context struct {
	e      *Enclave
	slot   *staging.Slot
	id     uuid.UUID
	handle staging.Handle
	closed bool
	mu     sync.Mutex
}

func newContext(e *Enclave, h staging.Handle, slot *staging.Slot) *Context {
	return &Context{
		e:      e,
		slot:   slot,
		id:     uuid.New(),
		handle: h,
	}
}

// ID returns the context's session identifier.
func (c *Context) ID() uuid.UUID {
	return c.id
}

// Handle returns the context's key in its enclave.
func (c *Context) Handle() staging.Handle {
	return c.handle
}

// Close closes the context. See Enclave.CloseContext.
func (c *Context) Close() error {
	return c.e.CloseContext(c.handle)
}

func (c *Context) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// enter checks the call may proceed. c.mu must be held.
func (c *Context) enter(ctx context.Context, op string) error {
	if c.closed {
		return errors.New(errors.PhaseCompute, errors.KindClosed).
			Op(op).
			Detail("context %s closed", c.id).
			Build()
	}
	if err := ctx.Err(); err != nil {
		return errors.New(errors.PhaseCompute, errors.KindCancelled).
			Op(op).
			Cause(err).
			Detail("call cancelled").
			Build()
	}
	return nil
}

type intFunc func(x, y *big.Int) (*big.Int, error)

// Add stages a + b and returns its length.
func (c *Context) Add(ctx context.Context, a, b uint64) (uint64, error) {
	return c.intOp(ctx, OpAdd, a, b, func(x, y *big.Int) (*big.Int, error) {
		return arith.Add(x, y), nil
	})
}

// Multiply stages a * b and returns its length.
func (c *Context) Multiply(ctx context.Context, a, b uint64) (uint64, error) {
	return c.intOp(ctx, OpMultiply, a, b, func(x, y *big.Int) (*big.Int, error) {
		return arith.Mul(x, y), nil
	})
}

// Divide stages a / b rounded toward negative infinity and returns its length.
func (c *Context) Divide(ctx context.Context, a, b uint64) (uint64, error) {
	return c.intOp(ctx, OpDivide, a, b, arith.Div)
}

func (c *Context) intOp(ctx context.Context, op string, a, b uint64, fn intFunc) (n uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe(op, time.Now(), &n, &err)

	if err := c.enter(ctx, op); err != nil {
		return 0, err
	}
	c.slot.Discard()

	x, y, err := c.loadPair(op, a, b)
	if err != nil {
		return 0, err
	}
	r, err := fn(x, y)
	if err != nil {
		return 0, errors.WithOp(err, op)
	}
	return c.stage(op, c.e.codec.EncodeInt(r))
}

// DecimalDivide stages a / b with digits significant digits and returns its
// length. The quotient is computed with just enough precision for digits.
func (c *Context) DecimalDivide(ctx context.Context, a, b uint64, digits int) (n uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe(OpDecimalDivide, time.Now(), &n, &err)

	if err := c.enter(ctx, OpDecimalDivide); err != nil {
		return 0, err
	}
	c.slot.Discard()

	if digits < 1 {
		return 0, errors.New(errors.PhaseCompute, errors.KindInvalidInput).
			Op(OpDecimalDivide).
			Value(digits).
			Detail("digit count %d, want at least 1", digits).
			Build()
	}
	x, y, err := c.loadPair(OpDecimalDivide, a, b)
	if err != nil {
		return 0, err
	}
	q, err := arith.Quo(x, y, codec.Precision(digits, c.e.codec.Radix()))
	if err != nil {
		return 0, errors.WithOp(err, OpDecimalDivide)
	}
	s, err := c.e.codec.EncodeFloat(q, digits)
	if err != nil {
		return 0, errors.WithOp(err, OpDecimalDivide)
	}
	return c.stage(OpDecimalDivide, s)
}

// EstimateConstant stages pi to digits+1 significant digits and returns its
// length.
func (c *Context) EstimateConstant(ctx context.Context, digits int) (n uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe(OpEstimateConstant, time.Now(), &n, &err)

	if err := c.enter(ctx, OpEstimateConstant); err != nil {
		return 0, err
	}
	c.slot.Discard()

	if digits < 1 {
		return 0, errors.New(errors.PhaseCompute, errors.KindInvalidInput).
			Op(OpEstimateConstant).
			Value(digits).
			Detail("digit count %d, want at least 1", digits).
			Build()
	}
	radix := c.e.codec.Radix()
	pi := arith.PiPrec(codec.Precision(digits+1, radix))
	s, err := c.e.codec.EncodeFloat(pi, digits+1)
	if err != nil {
		return 0, errors.WithOp(err, OpEstimateConstant)
	}
	return c.stage(OpEstimateConstant, s)
}

// ResultSize returns the pending result length, 0 when there is none.
func (c *Context) ResultSize() uint64 {
	return c.slot.Size()
}

// FetchResult copies exactly n bytes of the pending result plus a terminator
// to dst in untrusted memory and consumes the result. On failure the result
// stays pending.
func (c *Context) FetchResult(ctx context.Context, dst, n uint64) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe(OpFetchResult, time.Now(), &n, &err)

	if err := c.enter(ctx, OpFetchResult); err != nil {
		return err
	}
	if err := c.slot.Fetch(dst, n); err != nil {
		return errors.WithOp(err, OpFetchResult)
	}
	return nil
}

func (c *Context) loadPair(op string, a, b uint64) (*big.Int, *big.Int, error) {
	x, err := c.e.loadInt(a)
	if err != nil {
		return nil, nil, errors.WithOp(err, op)
	}
	y, err := c.e.loadInt(b)
	if err != nil {
		return nil, nil, errors.WithOp(err, op)
	}
	return x, y, nil
}

func (c *Context) stage(op, s string) (uint64, error) {
	if err := c.slot.Stage([]byte(s)); err != nil {
		return 0, errors.WithOp(err, op)
	}
	return uint64(len(s)), nil
}

func (c *Context) observe(op string, start time.Time, n *uint64, err *error) {
	c.e.metrics.observeCall(op, time.Since(start), *err)
	if *err != nil {
		Logger().Debug("call failed",
			zap.String("op", op),
			zap.Stringer("context", c.id),
			zap.Error(*err))
		return
	}
	Logger().Debug("call completed",
		zap.String("op", op),
		zap.Stringer("context", c.id),
		zap.Uint64("len", *n))
}
