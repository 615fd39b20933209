package codec

import (
	"math"
	"math/big"

	"github.com/wippyai/enclave-math/errors"
)

const (
	MinRadix     = 2
	MaxRadix     = 62
	DefaultRadix = 10
)

// guardBits is extra working precision for radix scaling.
const guardBits = 64

// ValidRadix reports whether radix is usable for encoding.
func ValidRadix(radix int) bool {
	return radix >= MinRadix && radix <= MaxRadix
}

// Precision returns the binary precision needed to hold digits significant
// digits in radix.
func Precision(digits, radix int) uint {
	if digits < 1 {
		digits = 1
	}
	return uint(math.Ceil(float64(digits)*math.Log2(float64(radix)))) + 1
}

// SignificantDigits returns how many radix digits a value of prec bits can
// meaningfully produce.
func SignificantDigits(prec uint, radix int) int {
	return 2 + int(float64(prec)*math.Ln2/math.Log(float64(radix)))
}

// Codec binds the encoding functions to one radix.
type Codec struct {
	radix int
}

// New returns a Codec for radix.
func New(radix int) (*Codec, error) {
	if !ValidRadix(radix) {
		return nil, errors.InvalidInput(errors.PhaseEncode, "radix out of range")
	}
	return &Codec{radix: radix}, nil
}

// Radix returns the codec's radix.
func (c *Codec) Radix() int {
	return c.radix
}

// EncodeInt writes v in the codec's radix.
func (c *Codec) EncodeInt(v *big.Int) string {
	return EncodeInt(v, c.radix)
}

// DecodeInt parses an integer written in the codec's radix.
func (c *Codec) DecodeInt(s string) (*big.Int, error) {
	return DecodeInt(s, c.radix)
}

// EncodeFloat writes v as [-].mantissa@exponent with digits significant digits.
func (c *Codec) EncodeFloat(v *big.Float, digits int) (string, error) {
	return EncodeFloat(v, c.radix, digits)
}

// DecodeFloat parses [-].mantissa@exponent at the precision for digits.
func (c *Codec) DecodeFloat(s string, digits int) (*big.Float, error) {
	return DecodeFloat(s, c.radix, digits)
}
