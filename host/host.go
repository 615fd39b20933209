package host

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/enclave-math/boundary"
	"github.com/wippyai/enclave-math/enclave"
	"github.com/wippyai/enclave-math/errors"
	"github.com/wippyai/enclave-math/memory"
	"github.com/wippyai/enclave-math/platform"
)

// Fixed virtual layout of the simulated address space.
const (
	HostBase      = 0x1000_0000
	ProtectedBase = 0x4000_0000
)

const (
	defaultPages      = 16
	defaultLimitPages = 256 // 16MB per segment
	maxLimitPages     = (ProtectedBase - HostBase) / memory.PageSize
)

// Config holds launch configuration. The zero value launches on real
// enclave support with default sizes.
type Config struct {
	// OnViolation is called with a trust violation before the calling
	// goroutine panics. nil means boundary.DefaultAbort, which exits.
	OnViolation boundary.AbortFunc

	// Registerer receives the enclave metrics. nil leaves them unregistered.
	Registerer prometheus.Registerer

	// Radix is the serialization radix, 2..62. 0 means 10.
	Radix int

	// HostPages and ProtectedPages are the initial segment sizes in 64KB
	// pages. 0 means 16.
	HostPages      uint32
	ProtectedPages uint32

	// MemoryLimitPages caps how far each segment may grow.
	// 0 means 256 pages (16MB).
	MemoryLimitPages uint32

	// MaxInputLength bounds an argument's length. 0 means the enclave default.
	MaxInputLength uint32

	// Simulation skips platform detection.
	Simulation bool
}

// Host owns the address space and the enclave launched into it.
type Host struct {
	rt        wazero.Runtime
	space     *memory.Space
	heap      *memory.Heap
	protected *memory.Heap
	enc       *enclave.Enclave
	support   platform.Support
	client    *Client
}

// Launch checks platform support, builds the address space and initializes
// an enclave in it.
func Launch(ctx context.Context, cfg *Config) (*Host, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	support := platform.Simulated
	if !cfg.Simulation {
		support = platform.Detect()
	}
	if err := platform.Check(support); err != nil {
		return nil, err
	}

	hostPages := orDefault(cfg.HostPages, defaultPages)
	protPages := orDefault(cfg.ProtectedPages, defaultPages)
	limit := orDefault(cfg.MemoryLimitPages, defaultLimitPages)
	if limit > maxLimitPages {
		return nil, errors.New(errors.PhaseLaunch, errors.KindInvalidInput).
			Value(limit).
			Detail("memory limit %d pages exceeds the %d page host window", limit, maxLimitPages).
			Build()
	}
	if hostPages > limit || protPages > limit {
		return nil, errors.InvalidInput(errors.PhaseLaunch, "initial pages exceed memory limit")
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(limit))
	h, err := build(ctx, rt, cfg, hostPages, protPages, limit)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	h.support = support

	Logger().Info("enclave launched",
		zap.Stringer("support", support),
		zap.Stringer("region", h.enc.Region()),
		zap.Int("radix", h.enc.Radix()))
	return h, nil
}

func build(ctx context.Context, rt wazero.Runtime, cfg *Config, hostPages, protPages, limit uint32) (*Host, error) {
	hostSeg, err := memory.NewSegment(ctx, rt, "host", HostBase, hostPages, limit)
	if err != nil {
		return nil, errors.WithOp(err, "launch")
	}
	protSeg, err := memory.NewSegment(ctx, rt, "protected", ProtectedBase, protPages, limit)
	if err != nil {
		return nil, errors.WithOp(err, "launch")
	}

	space := memory.NewSpace()
	if err := space.Map(hostSeg); err != nil {
		return nil, err
	}
	if err := space.Map(protSeg); err != nil {
		return nil, err
	}

	protected := memory.NewHeap(protSeg)
	region := boundary.Region{Base: ProtectedBase, Size: protSeg.Reserved()}
	enc, err := enclave.New(space, protected, region, &enclave.Config{
		OnViolation:    cfg.OnViolation,
		Registerer:     cfg.Registerer,
		Radix:          cfg.Radix,
		MaxInputLength: cfg.MaxInputLength,
	})
	if err != nil {
		return nil, err
	}
	if err := enc.Initialize(); err != nil {
		return nil, err
	}

	h := &Host{
		rt:        rt,
		space:     space,
		heap:      memory.NewHeap(hostSeg),
		protected: protected,
		enc:       enc,
	}
	h.client = newClient(h, enc, nil)
	return h, nil
}

func orDefault(v, def uint32) uint32 {
	if v == 0 {
		return def
	}
	return v
}

// Enclave returns the launched enclave.
func (h *Host) Enclave() *enclave.Enclave {
	return h.enc
}

// Space returns the simulated address space.
func (h *Host) Space() *memory.Space {
	return h.space
}

// Heap returns the untrusted heap arguments and receive buffers come from.
func (h *Host) Heap() *memory.Heap {
	return h.heap
}

// ProtectedHeap returns the enclave's engine heap.
func (h *Host) ProtectedHeap() *memory.Heap {
	return h.protected
}

// Support returns the platform capabilities the host launched with.
func (h *Host) Support() platform.Support {
	return h.support
}

// Client returns the client bound to the enclave's default context.
func (h *Host) Client() *Client {
	return h.client
}

// NewClient opens a new enclave context and returns a client bound to it.
// Close the client to release the context.
func (h *Host) NewClient() (*Client, error) {
	c, err := h.enc.NewContext()
	if err != nil {
		return nil, err
	}
	return newClient(h, c, c), nil
}

// Close shuts down the enclave and releases all memory.
func (h *Host) Close(ctx context.Context) error {
	if err := h.enc.Close(); err != nil {
		return err
	}
	if err := h.space.Close(ctx); err != nil {
		return fmt.Errorf("close address space: %w", err)
	}
	return h.rt.Close(ctx)
}
