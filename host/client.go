package host

import (
	"context"
	"math"
	"math/big"

	"go.uber.org/zap"

	"github.com/wippyai/enclave-math/codec"
	"github.com/wippyai/enclave-math/enclave"
	"github.com/wippyai/enclave-math/errors"
)

// calls is the enclave call surface, served by both *enclave.Enclave (default
// context) and *enclave.Context.
type calls interface {
	Add(ctx context.Context, a, b uint64) (uint64, error)
	Multiply(ctx context.Context, a, b uint64) (uint64, error)
	Divide(ctx context.Context, a, b uint64) (uint64, error)
	DecimalDivide(ctx context.Context, a, b uint64, digits int) (uint64, error)
	EstimateConstant(ctx context.Context, digits int) (uint64, error)
	ResultSize() uint64
	FetchResult(ctx context.Context, dst, n uint64) error
}

var (
	_ calls = (*enclave.Enclave)(nil)
	_ calls = (*enclave.Context)(nil)
)

// Client marshals math/big values through one enclave context.
type Client struct {
	h     *Host
	calls calls
	owned *enclave.Context
	codec *codec.Codec
}

func newClient(h *Host, c calls, owned *enclave.Context) *Client {
	cd, _ := codec.New(h.enc.Radix())
	return &Client{h: h, calls: c, owned: owned, codec: cd}
}

// Close releases the client's context. The default client cannot be closed.
func (c *Client) Close() error {
	if c.owned == nil {
		return nil
	}
	return c.owned.Close()
}

// Add returns a + b computed in the enclave.
func (c *Client) Add(ctx context.Context, a, b *big.Int) (*big.Int, error) {
	return c.intCall(ctx, enclave.OpAdd, c.calls.Add, a, b)
}

// Multiply returns a * b computed in the enclave.
func (c *Client) Multiply(ctx context.Context, a, b *big.Int) (*big.Int, error) {
	return c.intCall(ctx, enclave.OpMultiply, c.calls.Multiply, a, b)
}

// Divide returns floor(a / b) computed in the enclave.
func (c *Client) Divide(ctx context.Context, a, b *big.Int) (*big.Int, error) {
	return c.intCall(ctx, enclave.OpDivide, c.calls.Divide, a, b)
}

// DecimalDivide returns a / b to digits significant digits.
func (c *Client) DecimalDivide(ctx context.Context, a, b *big.Int, digits int) (*big.Float, error) {
	pa, pb, release, err := c.putPair(a, b)
	if err != nil {
		return nil, err
	}
	defer release()

	n, err := c.calls.DecimalDivide(ctx, pa, pb, digits)
	if err != nil {
		return nil, err
	}
	s, err := c.fetch(ctx, n)
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeFloat(s, digits)
}

// EstimateConstant returns pi to digits+1 significant digits.
func (c *Client) EstimateConstant(ctx context.Context, digits int) (*big.Float, error) {
	n, err := c.calls.EstimateConstant(ctx, digits)
	if err != nil {
		return nil, err
	}
	s, err := c.fetch(ctx, n)
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeFloat(s, digits+1)
}

// Fetch retrieves the pending result in its serialized form.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	return c.fetch(ctx, c.calls.ResultSize())
}

type intCallFunc func(ctx context.Context, a, b uint64) (uint64, error)

func (c *Client) intCall(ctx context.Context, op string, call intCallFunc, a, b *big.Int) (*big.Int, error) {
	pa, pb, release, err := c.putPair(a, b)
	if err != nil {
		return nil, err
	}
	defer release()

	n, err := call(ctx, pa, pb)
	if err != nil {
		return nil, err
	}
	s, err := c.fetch(ctx, n)
	if err != nil {
		return nil, err
	}
	v, err := c.codec.DecodeInt(s)
	if err != nil {
		return nil, errors.WithOp(err, op)
	}
	return v, nil
}

// putPair writes both operands into host memory. release frees them.
func (c *Client) putPair(a, b *big.Int) (uint64, uint64, func(), error) {
	if a == nil || b == nil {
		return 0, 0, nil, errors.NilPointer(errors.PhaseMarshal, "operand")
	}
	pa, sa, err := c.put(c.codec.EncodeInt(a))
	if err != nil {
		return 0, 0, nil, err
	}
	pb, sb, err := c.put(c.codec.EncodeInt(b))
	if err != nil {
		c.h.heap.Free(pa, sa)
		return 0, 0, nil, err
	}
	return pa, pb, func() {
		c.h.heap.Free(pa, sa)
		c.h.heap.Free(pb, sb)
	}, nil
}

// put copies s plus a terminator into host memory.
func (c *Client) put(s string) (uint64, uint32, error) {
	if uint64(len(s)) >= math.MaxUint32 {
		return 0, 0, errors.Overflow(errors.PhaseMarshal, len(s), "uint32")
	}
	size := uint32(len(s) + 1)
	ptr, err := c.h.heap.Alloc(size)
	if err != nil {
		return 0, 0, err
	}
	buf := make([]byte, size)
	copy(buf, s)
	if err := c.h.space.Write(ptr, buf); err != nil {
		c.h.heap.Free(ptr, size)
		return 0, 0, err
	}
	return ptr, size, nil
}

// fetch receives a result of length n into a fresh host buffer.
func (c *Client) fetch(ctx context.Context, n uint64) (string, error) {
	if n == 0 {
		return "", errors.Empty(errors.PhaseFetch)
	}
	if n >= math.MaxUint32 {
		return "", errors.Overflow(errors.PhaseFetch, n, "uint32")
	}
	size := uint32(n + 1)
	dst, err := c.h.heap.Alloc(size)
	if err != nil {
		return "", err
	}
	defer c.h.heap.Free(dst, size)

	if err := c.calls.FetchResult(ctx, dst, n); err != nil {
		return "", err
	}
	s, err := c.h.space.ReadString(dst, uint32(n))
	if err != nil {
		return "", errors.Wrap(errors.PhaseFetch, errors.KindOutOfBounds, err, "read receive buffer")
	}
	if uint64(len(s)) != n {
		return "", errors.SizeMismatch(errors.PhaseFetch, n, uint64(len(s)))
	}
	Logger().Debug("result received", zap.Uint64("ptr", dst), zap.Uint64("len", n))
	return s, nil
}
