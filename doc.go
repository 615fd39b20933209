// Package enclavemath marshals arbitrary-precision numbers across a trust
// boundary into a protected memory region and back.
//
// The hard part is not the arithmetic but the boundary crossing: numeric
// values are opaque objects with internal pointers, so they are converted to a
// validated, self-describing string form before entering the protected region
// and converted again before leaving it. The protected side never dereferences
// an address it has not checked, and the untrusted side never observes
// protected memory except through a validated copy.
//
// # Architecture Overview
//
//	enclavemath/         Root package with Memory and Allocator interfaces
//	├── codec/           Integer and decimal string encodings in a radix
//	├── boundary/        Trust region checks and the fatal violation path
//	├── interpose/       Allocator wrapper that only touches protected memory
//	├── staging/         Two-phase size/fetch result slots
//	├── memory/          wazero-backed segments, address space, heap
//	├── arith/           Numeric operations over math/big
//	├── enclave/         Trusted call surface and execution contexts
//	├── platform/        Capability detection
//	├── host/            Untrusted runtime and marshaling client
//	├── errors/          Structured recoverable errors
//	└── cmd/enclavemath/ Driver program
//
// # Address Space
//
// A process address space is modeled as segments, each a wazero linear memory
// mapped at a fixed virtual base:
//
//	0x1000_0000  host heap       (untrusted)
//	0x4000_0000  protected heap  (trusted)
//
// Calls into the trusted side take (address, length) pairs, never Go values.
//
// # Quick Start
//
//	h, err := host.Launch(ctx, &host.Config{Simulation: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close(ctx)
//
//	c := h.Client()
//	sum, err := c.Add(ctx, big.NewInt(123), big.NewInt(456))
//	fmt.Println(sum) // 579
//
// # Failure Tiers
//
// Malformed input, oversized fetches and allocation failures are returned as
// *errors.Error together with a zero length. A pointer that fails a required
// trust region check is a boundary.Violation: the abort hook runs and execution
// never resumes past the check.
package enclavemath
