package enclave

import (
	"math/big"

	"go.uber.org/zap"

	enclavemath "github.com/wippyai/enclave-math"
	"github.com/wippyai/enclave-math/boundary"
	"github.com/wippyai/enclave-math/errors"
)

// copyInChunk is the initial size of a protected argument buffer.
const copyInChunk = 64

// loadInt copies the serialized integer at addr into protected memory and
// parses it from there.
func (e *Enclave) loadInt(addr uint64) (*big.Int, error) {
	s, err := e.copyIn(addr)
	if err != nil {
		return nil, err
	}
	v, err := e.codec.DecodeInt(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// copyIn reads the NUL-terminated string at addr in untrusted memory into a
// protected buffer and returns the protected copy's contents. The untrusted
// bytes are read exactly once.
func (e *Enclave) copyIn(addr uint64) (string, error) {
	if addr == enclavemath.Null {
		return "", errors.NilPointer(errors.PhaseMarshal, "argument")
	}
	if !e.guard.Check(addr, 1, boundary.Outside) {
		return "", errors.OutOfBounds(errors.PhaseMarshal, addr, 1, "argument in protected memory")
	}
	raw, err := e.mem.ReadString(addr, e.maxInput)
	if err != nil {
		return "", errors.Wrap(errors.PhaseMarshal, errors.KindOutOfBounds, err, "read argument")
	}
	n := uint64(len(raw)) + 1
	if !e.guard.Check(addr, n, boundary.Outside) {
		return "", errors.OutOfBounds(errors.PhaseMarshal, addr, n, "argument overlaps protected memory")
	}

	buf := make([]byte, n)
	copy(buf, raw)

	size := uint32(min(n, copyInChunk))
	ptr, err := e.alloc.Alloc(size)
	if err != nil {
		return "", err
	}
	defer func() { e.alloc.Free(ptr, size) }()

	// Grown chunk by chunk through the interposed allocator.
	var off uint32
	for {
		if err := e.writeProtected("copy_in", ptr+uint64(off), buf[off:size]); err != nil {
			return "", err
		}
		off = size
		if uint64(off) == n {
			break
		}
		next := uint32(min(uint64(size)*2, n))
		grown, err := e.alloc.Realloc(ptr, size, next)
		if err != nil {
			return "", err
		}
		ptr, size = grown, next
	}

	local, err := e.mem.Read(ptr, uint32(len(raw)))
	if err != nil {
		return "", errors.Wrap(errors.PhaseMarshal, errors.KindOutOfBounds, err, "read protected copy")
	}
	Logger().Debug("argument copied in",
		zap.Uint64("ptr", addr),
		zap.Uint64("len", uint64(len(raw))))
	return string(local), nil
}

// writeProtected writes data to protected memory. A destination outside the
// protected region is a trust violation.
func (e *Enclave) writeProtected(op string, ptr uint64, data []byte) error {
	e.guard.Require(op, ptr, uint64(len(data)), boundary.Inside)
	if err := e.mem.Write(ptr, data); err != nil {
		return errors.Wrap(errors.PhaseMarshal, errors.KindOutOfBounds, err, "write protected memory")
	}
	return nil
}
