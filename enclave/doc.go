// Package enclave is the trusted side of the boundary: the call surface the
// untrusted host invokes with pointers into its own memory.
//
// # Call surface
//
//	Initialize()                          install the allocator interposer
//	Add(a, b) / Multiply(a, b)            integer arithmetic
//	Divide(a, b)                          floor division
//	DecimalDivide(a, b, digits)           float quotient, digits significant
//	EstimateConstant(digits)              pi via the Chudnovsky series
//	ResultSize()                          length of the pending result
//	FetchResult(dst, n)                   copy the pending result out
//
// Arguments a and b are addresses of NUL-terminated serialized integers in
// untrusted memory. Each one is checked to lie outside the protected region,
// copied into protected memory and parsed from that copy. Every numeric call
// first discards the previous pending result, then stages its own and
// returns its length. A failed call returns 0 with a *errors.Error.
//
// # Contexts
//
// Each Context owns one staging slot. Calls on a Context are serialized;
// distinct contexts run concurrently. The Enclave methods of the same names
// act on a default context created by Initialize.
//
// # Failures
//
// Malformed input, size mismatches and allocation failures are recoverable.
// A pointer handed to the allocator that is not in protected memory is a
// trust violation and never returns; see package boundary.
package enclave
