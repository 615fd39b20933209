// Package codec converts arbitrary-precision numbers to compact printable
// strings and back.
//
// Two kinds are supported, each with a single fixed encoding:
//
//	Kind      Form                    Example (radix 10)
//	──────────────────────────────────────────────────────
//	integer   [-]digits               -30
//	decimal   [-].mantissa@exponent   -.314159@6
//
// A decimal's value is 0.mantissa × radix^exponent. The mantissa and the
// exponent are both written in the radix. The radix point always leads the
// mantissa; a negative sign precedes the point, never follows it.
//
// # Digit Alphabet
//
// Radix 2 through 62 use the math/big alphabet: 0-9, then a-z for values
// 10-35 (either case accepted up to radix 36), then A-Z for 36-61.
//
// # Precision
//
// A decimal string does not record the precision it was produced at. The
// digit count used to encode must be supplied again to DecodeFloat, which
// sizes the working precision before parsing:
//
//	bits = ceil(digits × log2(radix)) + 1
//
// Parsing into a narrower value would silently drop digits.
//
// This package makes no trust assumptions; callers decide where the bytes
// came from.
package codec
