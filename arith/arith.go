// Package arith is the numeric engine behind the enclave calls. Values are
// math/big types and are never inspected beyond their public methods.
package arith

import (
	"math"
	"math/big"

	"github.com/wippyai/enclave-math/errors"
)

// ErrDivisionByZero is returned by Div and Quo for a zero divisor.
var ErrDivisionByZero = errors.New(errors.PhaseCompute, errors.KindDivisionByZero).
	Detail("division by zero").
	Build()

// guardBits is the extra working precision used for intermediate results.
const guardBits = 64

// Add returns a + b.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}

// Mul returns a * b.
func Mul(a, b *big.Int) *big.Int {
	return new(big.Int).Mul(a, b)
}

// Div returns the quotient of a / b rounded toward negative infinity.
func Div(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 && r.Sign() != b.Sign() {
		q.Sub(q, big.NewInt(1))
	}
	return q, nil
}

// Quo returns a / b as a float with prec bits of mantissa.
func Quo(a, b *big.Int, prec uint) (*big.Float, error) {
	if b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	fa := new(big.Float).SetPrec(prec + guardBits).SetInt(a)
	fb := new(big.Float).SetPrec(prec + guardBits).SetInt(b)
	q := new(big.Float).SetPrec(prec + guardBits).Quo(fa, fb)
	return q.SetPrec(prec), nil
}

// DigitsPerTerm is how many decimal digits each Chudnovsky term adds.
const DigitsPerTerm = 14.1816474627254776555

// PiPrecision returns the mantissa bits Pi uses for digits decimal digits.
func PiPrecision(digits int) uint {
	if digits < 1 {
		digits = 1
	}
	return uint(float64(digits)*math.Log2(10)) + 1
}

var (
	chudA = big.NewInt(13591409)
	chudB = big.NewInt(545140134)
	chudC = big.NewInt(-640320)
)

// Pi approximates pi to digits decimal digits.
func Pi(digits int) *big.Float {
	return PiPrec(PiPrecision(digits))
}

// PiPrec approximates pi with prec bits of mantissa using the Chudnovsky
// series:
//
//	426880·sqrt(10005) / pi = Σ (6k)!(13591409 + 545140134k) / ((3k)!(k!)³(-640320)^3k)
func PiPrec(prec uint) *big.Float {
	if prec < 2 {
		prec = 2
	}
	work := prec + guardBits
	terms := int64(float64(prec)*math.Log10(2)/DigitsPerTerm) + 1

	sum := new(big.Float).SetPrec(work)
	num := new(big.Int)
	den := new(big.Int)
	tmp := new(big.Int)
	fnum := new(big.Float).SetPrec(work)
	fden := new(big.Float).SetPrec(work)
	for k := int64(0); k < terms; k++ {
		num.MulRange(1, 6*k)
		tmp.Mul(chudB, big.NewInt(k))
		tmp.Add(tmp, chudA)
		num.Mul(num, tmp)

		den.MulRange(1, 3*k)
		tmp.MulRange(1, k)
		tmp.Exp(tmp, big.NewInt(3), nil)
		den.Mul(den, tmp)
		tmp.Exp(chudC, big.NewInt(3*k), nil)
		den.Mul(den, tmp)

		fnum.SetInt(num)
		fden.SetInt(den)
		sum.Add(sum, fnum.Quo(fnum, fden))
	}

	c := new(big.Float).SetPrec(work).SetInt64(10005)
	c.Sqrt(c)
	c.Mul(c, new(big.Float).SetPrec(work).SetInt64(426880))

	pi := new(big.Float).SetPrec(work).Quo(c, sum)
	return pi.SetPrec(prec)
}
