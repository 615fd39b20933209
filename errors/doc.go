// Package errors provides structured error types for recoverable failures.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the failing call, the address range
// involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseFetch, errors.KindOutOfBounds).
//		Op("fetch_result").
//		Range(dst, n+1).
//		Detail("destination not outside the protected region").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.SizeMismatch(errors.PhaseFetch, 12, 3)
//	err := errors.InvalidFormat(errors.PhaseDecode, s, "bad digit")
//
// Trust boundary violations are deliberately absent from this package: they
// are fatal and handled by package boundary, never returned as values.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
