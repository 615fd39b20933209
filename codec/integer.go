package codec

import (
	"fmt"
	"math/big"

	"github.com/wippyai/enclave-math/errors"
)

// EncodeInt returns the shortest representation of v in radix.
// A nil v encodes as zero. radix must satisfy ValidRadix.
func EncodeInt(v *big.Int, radix int) string {
	if v == nil {
		return "0"
	}
	return v.Text(radix)
}

// DecodeInt parses an integer written in radix with an optional leading sign.
func DecodeInt(s string, radix int) (*big.Int, error) {
	if !ValidRadix(radix) {
		return nil, errors.InvalidInput(errors.PhaseDecode, "radix out of range")
	}
	if s == "" {
		return nil, errors.InvalidFormat(errors.PhaseDecode, s, "empty integer")
	}
	v, ok := new(big.Int).SetString(s, radix)
	if !ok {
		return nil, errors.InvalidFormat(errors.PhaseDecode, s, fmt.Sprintf("not a radix-%d integer", radix))
	}
	return v, nil
}
