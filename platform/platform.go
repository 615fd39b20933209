// Package platform reports whether the machine can host a protected region.
package platform

import (
	"strings"

	"github.com/klauspost/cpuid/v2"

	"github.com/wippyai/enclave-math/errors"
)

// Support is a bitmask of platform capabilities.
type Support uint32

const (
	SGX1      Support = 1 << iota // SGX1 instructions
	SGX2                          // SGX2 instructions (dynamic memory)
	FLC                           // flexible launch control
	Driver                        // enclave device node present
	Simulated                     // protected region is simulated in process
)

var supportNames = []struct {
	bit  Support
	name string
}{
	{SGX1, "sgx1"},
	{SGX2, "sgx2"},
	{FLC, "flc"},
	{Driver, "driver"},
	{Simulated, "simulated"},
}

// Has reports whether every bit of f is set.
func (s Support) Has(f Support) bool {
	return s&f == f
}

// OK reports whether an enclave can be launched: either the hardware and
// its driver are both present, or the region is simulated.
func (s Support) OK() bool {
	return s.Has(Simulated) || s.Has(SGX1|Driver)
}

func (s Support) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, n := range supportNames {
		if s.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Detect queries the CPU and the enclave driver.
func Detect() Support {
	var s Support
	sgx := cpuid.CPU.SGX
	if sgx.Available && sgx.SGX1Supported {
		s |= SGX1
	}
	if sgx.Available && sgx.SGX2Supported {
		s |= SGX2
	}
	if sgx.LaunchControl {
		s |= FLC
	}
	if probeDevice(devicePaths) {
		s |= Driver
	}
	return s
}

// Info describes the host CPU for diagnostics.
type Info struct {
	Vendor         string
	Brand          string
	MaxEnclaveSize int64
	EPCSections    int
}

// Describe returns CPU details relevant to enclave support.
func Describe() Info {
	return Info{
		Vendor:         cpuid.CPU.VendorString,
		Brand:          cpuid.CPU.BrandName,
		MaxEnclaveSize: cpuid.CPU.SGX.MaxEnclaveSize64,
		EPCSections:    len(cpuid.CPU.SGX.EPCSections),
	}
}

// Check returns an error unless s can launch an enclave.
func Check(s Support) error {
	if s.OK() {
		return nil
	}
	return errors.New(errors.PhasePlatform, errors.KindUnsupported).
		Value(s).
		Detail("enclaves not supported (have %s)", s).
		Build()
}
