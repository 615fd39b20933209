package host

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/enclave-math/boundary"
	"github.com/wippyai/enclave-math/errors"
	"github.com/wippyai/enclave-math/platform"
)

func launch(t *testing.T, cfg Config) *Host {
	t.Helper()
	ctx := context.Background()
	cfg.Simulation = true
	if cfg.OnViolation == nil {
		cfg.OnViolation = func(v *boundary.Violation) { t.Errorf("unexpected violation: %v", v) }
	}
	h, err := Launch(ctx, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close(ctx) })
	return h
}

func bi(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, s)
	return v
}

func TestLaunchSimulated(t *testing.T) {
	h := launch(t, Config{})

	assert.Equal(t, platform.Simulated, h.Support())
	assert.Equal(t, uint64(ProtectedBase), h.Enclave().Region().Base)
	assert.Len(t, h.Space().Segments(), 2)
	assert.Equal(t, 1, h.Enclave().Contexts())
}

func TestLaunchWithoutSupport(t *testing.T) {
	if platform.Detect().OK() {
		t.Skip("host has enclave support")
	}
	_, err := Launch(context.Background(), nil)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhasePlatform, Kind: errors.KindUnsupported})
}

func TestLaunchRejectsLimits(t *testing.T) {
	ctx := context.Background()

	_, err := Launch(ctx, &Config{Simulation: true, MemoryLimitPages: maxLimitPages + 1})
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLaunch, Kind: errors.KindInvalidInput})

	_, err = Launch(ctx, &Config{Simulation: true, HostPages: 8, MemoryLimitPages: 4})
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLaunch, Kind: errors.KindInvalidInput})

	_, err = Launch(ctx, &Config{Simulation: true, Radix: 1})
	assert.Error(t, err)
}

func TestClientIntegerOps(t *testing.T) {
	h := launch(t, Config{})
	c := h.Client()
	ctx := context.Background()

	sum, err := c.Add(ctx, big.NewInt(123), big.NewInt(456))
	require.NoError(t, err)
	assert.Equal(t, "579", sum.String())

	prod, err := c.Multiply(ctx, big.NewInt(10), big.NewInt(-3))
	require.NoError(t, err)
	assert.Equal(t, "-30", prod.String())

	q, err := c.Divide(ctx, bi(t, "-3495834905870984801203923984598723"), big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "-3495834905870984801203923984599", q.String())

	_, err = c.Divide(ctx, big.NewInt(1), big.NewInt(0))
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCompute, Kind: errors.KindDivisionByZero})

	_, err = c.Add(ctx, nil, big.NewInt(1))
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseMarshal, Kind: errors.KindNilPointer})

	assert.Zero(t, h.Heap().InUse(), "host buffers released")
	assert.Zero(t, h.ProtectedHeap().InUse(), "protected buffers released")
}

func TestClientDecimalDivide(t *testing.T) {
	h := launch(t, Config{})
	ctx := context.Background()

	v, err := h.Client().DecimalDivide(ctx, bi(t, "-3141592653546"), bi(t, "10000000"), 6)
	require.NoError(t, err)
	assert.Equal(t, "-314159", v.Text('f', 0))

	v, err = h.Client().DecimalDivide(ctx, big.NewInt(22), big.NewInt(7), 12)
	require.NoError(t, err)
	assert.Equal(t, "3.14285714286", v.Text('f', 11))
}

func TestClientEstimateConstant(t *testing.T) {
	h := launch(t, Config{})

	pi, err := h.Client().EstimateConstant(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, "3.14159265358979323846", pi.Text('f', 20))

	_, err = h.Client().EstimateConstant(context.Background(), 0)
	assert.Error(t, err)
}

func TestClientRadix(t *testing.T) {
	h := launch(t, Config{Radix: 36})

	v, err := h.Client().Multiply(context.Background(), big.NewInt(36), big.NewInt(36))
	require.NoError(t, err)
	assert.Equal(t, int64(1296), v.Int64())
}

func TestClientFetchNothingPending(t *testing.T) {
	h := launch(t, Config{})

	_, err := h.Client().Fetch(context.Background())
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseFetch, Kind: errors.KindEmpty})
}

func TestClientFetchRaw(t *testing.T) {
	h := launch(t, Config{})
	ctx := context.Background()

	a, sa, err := h.Client().put("99")
	require.NoError(t, err)
	defer h.Heap().Free(a, sa)

	n, err := h.Enclave().Add(ctx, a, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	s, err := h.Client().Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "198", s)
}

func TestNewClientIsolated(t *testing.T) {
	h := launch(t, Config{})
	ctx := context.Background()

	c, err := h.NewClient()
	require.NoError(t, err)
	assert.Equal(t, 2, h.Enclave().Contexts())

	a, sa, err := c.put("5")
	require.NoError(t, err)
	defer h.Heap().Free(a, sa)
	_, err = h.Enclave().Add(ctx, a, a)
	require.NoError(t, err)

	_, err = c.Fetch(ctx)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseFetch, Kind: errors.KindEmpty}, "default context result is not visible")

	require.NoError(t, c.Close())
	assert.Equal(t, 1, h.Enclave().Contexts())
	require.NoError(t, h.Client().Close())
}

func TestParallel(t *testing.T) {
	h := launch(t, Config{})
	ctx := context.Background()

	var done atomic.Int32
	tasks := make([]Task, 16)
	for i := range tasks {
		tasks[i] = func(ctx context.Context, c *Client) error {
			v, err := c.Multiply(ctx, big.NewInt(int64(i)), big.NewInt(-3))
			if err != nil {
				return err
			}
			if v.Int64() != int64(-3*i) {
				t.Errorf("task %d: got %s", i, v)
			}
			done.Add(1)
			return nil
		}
	}
	require.NoError(t, h.Parallel(ctx, tasks...))
	assert.Equal(t, int32(16), done.Load())
	assert.Equal(t, 1, h.Enclave().Contexts(), "task contexts closed")
}

func TestParallelPropagatesError(t *testing.T) {
	h := launch(t, Config{})

	err := h.Parallel(context.Background(),
		func(ctx context.Context, c *Client) error {
			_, err := c.Divide(ctx, big.NewInt(1), big.NewInt(0))
			return err
		},
		func(ctx context.Context, c *Client) error {
			_, err := c.Add(ctx, big.NewInt(1), big.NewInt(1))
			return err
		},
	)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCompute, Kind: errors.KindDivisionByZero})
}

func TestLaunchRegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := launch(t, Config{Registerer: reg})

	_, err := h.Client().Add(context.Background(), big.NewInt(1), big.NewInt(2))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "enclavemath_calls_total")
	assert.Contains(t, names, "enclavemath_protected_heap_bytes")
}
