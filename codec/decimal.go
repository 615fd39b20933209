package codec

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/wippyai/enclave-math/errors"
)

const (
	exponentSep = "@"
	radixPoint  = "."

	// maxExponent bounds decoded exponents before any scaling work is done.
	maxExponent = 1 << 34
)

// EncodeFloat writes v with digits significant radix digits as
// [-].mantissa@exponent. digits <= 0 selects as many digits as v's precision
// supports.
func EncodeFloat(v *big.Float, radix, digits int) (string, error) {
	if v == nil {
		return "", errors.InvalidInput(errors.PhaseEncode, "nil decimal")
	}
	if !ValidRadix(radix) {
		return "", errors.InvalidInput(errors.PhaseEncode, "radix out of range")
	}
	if v.IsInf() {
		return "", errors.InvalidInput(errors.PhaseEncode, "infinite decimal")
	}
	if digits <= 0 {
		digits = SignificantDigits(v.Prec(), radix)
	}

	raw, exp, err := mantissaDigits(v, radix, digits)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(normalizeMantissa(raw))
	b.WriteString(exponentSep)
	b.WriteString(big.NewInt(exp).Text(radix))
	return b.String(), nil
}

// normalizeMantissa turns an engine digit string into leading-point form:
// "-D..." becomes "-.D..." and "D..." becomes ".D...".
func normalizeMantissa(raw string) string {
	if strings.HasPrefix(raw, "-") {
		return "-" + radixPoint + raw[1:]
	}
	return radixPoint + raw
}

// mantissaDigits returns the signed significant digits of v (trailing zeros
// stripped) and the exponent e such that |v| ≈ 0.digits × radix^e.
func mantissaDigits(v *big.Float, radix, digits int) (string, int64, error) {
	if v.Sign() == 0 {
		return "", 0, nil
	}

	log2r := math.Log2(float64(radix))
	prec := v.Prec() + uint(math.Ceil(float64(digits)*log2r)) + guardBits

	x := new(big.Float).SetPrec(prec).Abs(v)

	lo := new(big.Int).Exp(big.NewInt(int64(radix)), big.NewInt(int64(digits-1)), nil)
	hi := new(big.Int).Mul(lo, big.NewInt(int64(radix)))
	loF := new(big.Float).SetPrec(prec).SetInt(lo)
	hiF := new(big.Float).SetPrec(prec).SetInt(hi)

	// r^(e-1) <= x < r^e, estimated from the binary exponent then corrected.
	exp2 := x.MantExp(nil)
	e := int64(math.Floor(float64(exp2-1)/log2r)) + 1

	var scaled *big.Float
	dir := 0
	for i := 0; ; i++ {
		if i > 8 {
			return "", 0, errors.InvalidInput(errors.PhaseEncode, "exponent estimate did not converge")
		}
		scaled = scaleByRadixPow(x, radix, int64(digits)-e, prec)
		if scaled.IsInf() {
			return "", 0, errors.Overflow(errors.PhaseEncode, v.Text('g', 10), "radix scaling")
		}
		step := 0
		switch {
		case scaled.Cmp(hiF) >= 0:
			step = 1
		case scaled.Cmp(loF) < 0:
			step = -1
		}
		if step == 0 {
			break
		}
		if dir != 0 && step != dir {
			// x sits on a radix power within scaling error
			if step > 0 {
				e++
			}
			scaled.Set(loF)
			break
		}
		dir = step
		e += int64(step)
	}

	half := new(big.Float).SetPrec(prec).SetFloat64(0.5)
	m, _ := scaled.Add(scaled, half).Int(nil)
	if m.Cmp(hi) >= 0 {
		// rounding carried into a new leading digit
		m.Set(lo)
		e++
	}

	s := strings.TrimRight(m.Text(radix), "0")
	if v.Sign() < 0 {
		s = "-" + s
	}
	return s, e, nil
}

// scaleByRadixPow returns x × radix^k at prec bits. The power is applied in
// two halves so that neither intermediate leaves big.Float's exponent range
// when the final result is representable.
func scaleByRadixPow(x *big.Float, radix int, k int64, prec uint) *big.Float {
	z := new(big.Float).SetPrec(prec).Set(x)
	if k == 0 {
		return z
	}
	neg := k < 0
	if neg {
		k = -k
	}
	for _, part := range [2]int64{k / 2, k - k/2} {
		if part == 0 {
			continue
		}
		p := radixPow(radix, part, prec)
		if neg {
			z.Quo(z, p)
		} else {
			z.Mul(z, p)
		}
	}
	return z
}

func radixPow(radix int, n int64, prec uint) *big.Float {
	result := new(big.Float).SetPrec(prec).SetInt64(1)
	base := new(big.Float).SetPrec(prec).SetInt64(int64(radix))
	for n > 0 {
		if n&1 == 1 {
			result.Mul(result, base)
		}
		n >>= 1
		if n > 0 {
			base.Mul(base, base)
		}
	}
	return result
}

// DecodeFloat parses [-].mantissa@exponent written in radix. The result has
// the precision needed for digits significant radix digits.
func DecodeFloat(s string, radix, digits int) (*big.Float, error) {
	if !ValidRadix(radix) {
		return nil, errors.InvalidInput(errors.PhaseDecode, "radix out of range")
	}
	prec := Precision(digits, radix)

	mant, exp, found := strings.Cut(s, exponentSep)
	if !found {
		return nil, errors.InvalidFormat(errors.PhaseDecode, s, "missing exponent separator")
	}
	if strings.Contains(exp, exponentSep) {
		return nil, errors.InvalidFormat(errors.PhaseDecode, s, "multiple exponent separators")
	}

	neg := strings.HasPrefix(mant, "-")
	if neg {
		mant = mant[1:]
	}
	if !strings.HasPrefix(mant, radixPoint) {
		return nil, errors.InvalidFormat(errors.PhaseDecode, s, "mantissa must start with radix point")
	}
	mant = mant[len(radixPoint):]

	if exp == "" {
		return nil, errors.InvalidFormat(errors.PhaseDecode, s, "empty exponent")
	}
	e, ok := new(big.Int).SetString(exp, radix)
	if !ok {
		return nil, errors.InvalidFormat(errors.PhaseDecode, s, fmt.Sprintf("exponent not a radix-%d integer", radix))
	}
	if !e.IsInt64() || e.Int64() > maxExponent || e.Int64() < -maxExponent {
		return nil, errors.Overflow(errors.PhaseDecode, exp, "decimal exponent")
	}

	z := new(big.Float).SetPrec(prec)
	if mant == "" {
		return z, nil
	}
	if mant[0] == '-' || mant[0] == '+' {
		return nil, errors.InvalidFormat(errors.PhaseDecode, s, "sign after radix point")
	}
	m, ok := new(big.Int).SetString(mant, radix)
	if !ok {
		return nil, errors.InvalidFormat(errors.PhaseDecode, s, fmt.Sprintf("mantissa not radix-%d digits", radix))
	}
	if m.Sign() == 0 {
		return z, nil
	}

	work := prec + guardBits
	if bits := uint(m.BitLen()); bits > work {
		work = bits
	}
	f := new(big.Float).SetPrec(work).SetInt(m)
	f = scaleByRadixPow(f, radix, e.Int64()-int64(len(mant)), work)
	if f.IsInf() || f.Sign() == 0 {
		return nil, errors.Overflow(errors.PhaseDecode, exp, "decimal exponent")
	}
	if neg {
		f.Neg(f)
	}
	return z.Set(f), nil
}
