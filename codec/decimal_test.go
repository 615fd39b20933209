package codec

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/enclave-math/errors"
)

func mustFloat(t *testing.T, s string) *big.Float {
	t.Helper()
	v, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	require.NoError(t, err)
	return v
}

func TestNormalizeMantissa(t *testing.T) {
	assert.Equal(t, "-.314159", normalizeMantissa("-314159"))
	assert.Equal(t, ".314159", normalizeMantissa("314159"))
	assert.Equal(t, ".", normalizeMantissa(""))
}

func TestEncodeFloat(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		radix  int
		digits int
		want   string
	}{
		{"negative six digits", "-314159.2653546", 10, 6, "-.314159@6"},
		{"negative nine digits", "-314159.2653546", 10, 9, "-.314159265@6"},
		{"small positive", "0.001234", 10, 3, ".123@-2"},
		{"rounding carry", "9.99", 10, 2, ".1@2"},
		{"trailing zeros stripped", "1200", 10, 6, ".12@4"},
		{"exact power", "100", 10, 3, ".1@3"},
		{"zero", "0", 10, 6, ".@0"},
		{"hex exponent", "1208925819614629174706176", 16, 4, ".1@15"},
		{"binary", "-6", 2, 8, "-.11@11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeFloat(mustFloat(t, tt.value), tt.radix, tt.digits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeFloatRejects(t *testing.T) {
	_, err := EncodeFloat(nil, 10, 6)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindInvalidInput})

	_, err = EncodeFloat(new(big.Float).SetInf(true), 10, 6)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindInvalidInput})

	_, err = EncodeFloat(big.NewFloat(1), 99, 6)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindInvalidInput})
}

func TestEncodeFloatDefaultDigits(t *testing.T) {
	third := new(big.Float).SetPrec(64).Quo(big.NewFloat(1), big.NewFloat(3))
	s, err := EncodeFloat(third, 10, 0)
	require.NoError(t, err)

	mant, exp, ok := strings.Cut(s, "@")
	require.True(t, ok)
	assert.Equal(t, "0", exp)
	assert.Len(t, strings.TrimPrefix(mant, "."), SignificantDigits(64, 10))
}

func TestNegativeMantissaSign(t *testing.T) {
	for _, radix := range []int{2, 10, 16, 62} {
		for _, s := range []string{"-1", "-0.5", "-314159.2653546", "-1e-30", "-7e40"} {
			enc, err := EncodeFloat(mustFloat(t, s), radix, 8)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(enc, "-."), "radix %d %s -> %q", radix, s, enc)
			assert.NotContains(t, enc, ".-")
		}
	}
}

func TestDecodeFloat(t *testing.T) {
	v, err := DecodeFloat("-.314159@6", 10, 6)
	require.NoError(t, err)
	assert.Equal(t, Precision(6, 10), v.Prec())
	f, _ := v.Float64()
	assert.Equal(t, -314159.0, f)

	v, err = DecodeFloat(".123@-2", 10, 3)
	require.NoError(t, err)
	f, _ = v.Float64()
	assert.InDelta(t, 0.00123, f, 1e-8)

	v, err = DecodeFloat(".@0", 10, 6)
	require.NoError(t, err)
	assert.Zero(t, v.Sign())

	v, err = DecodeFloat(".1@15", 16, 4)
	require.NoError(t, err)
	want := new(big.Float).SetMantExp(big.NewFloat(1), 80)
	assert.Zero(t, v.Cmp(want))
}

func TestDecodeFloatRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  errors.Kind
	}{
		{"no separator", ".123", errors.KindInvalidFormat},
		{"empty exponent", ".123@", errors.KindInvalidFormat},
		{"two separators", ".1@2@3", errors.KindInvalidFormat},
		{"no radix point", "123@2", errors.KindInvalidFormat},
		{"sign after point", ".-123@2", errors.KindInvalidFormat},
		{"double sign", "--.1@2", errors.KindInvalidFormat},
		{"bad mantissa digit", ".1x3@2", errors.KindInvalidFormat},
		{"bad exponent digit", ".123@z", errors.KindInvalidFormat},
		{"exponent beyond bound", ".1@99999999999999", errors.KindOverflow},
		{"exponent beyond float range", ".1@1000000000", errors.KindOverflow},
		{"exponent below float range", ".1@-1000000000", errors.KindOverflow},
		{"negative below float range", "-.5@-800000000", errors.KindOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFloat(tt.input, 10, 6)
			require.Error(t, err)
			assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseDecode, Kind: tt.kind})
		})
	}
}

func TestDecodeFloatZeroMantissaAnyExponent(t *testing.T) {
	for _, in := range []string{".0@5", ".000@-1000000000", "-.0@1000000000"} {
		v, err := DecodeFloat(in, 10, 6)
		require.NoError(t, err, in)
		assert.Zero(t, v.Sign(), in)
	}
	v, err := DecodeFloat(".0@zzzzz", 62, 6)
	require.NoError(t, err)
	assert.Zero(t, v.Sign())
}

func TestFloatRoundTripWithinDigits(t *testing.T) {
	values := []string{
		"-314159.2653546",
		"3.14159265358979323846264338327950288",
		"6.02214076e23",
		"-1.602176634e-19",
		"1",
		"123456789012345678901234567890",
	}
	for _, radix := range []int{2, 10, 16, 62} {
		for _, digits := range []int{1, 6, 12, 30} {
			for _, s := range values {
				v := mustFloat(t, s)
				enc, err := EncodeFloat(v, radix, digits)
				require.NoError(t, err)
				got, err := DecodeFloat(enc, radix, digits)
				require.NoError(t, err, "decode %q", enc)

				diff := new(big.Float).SetPrec(512).Sub(v, got)
				diff.Abs(diff)
				rel := diff.Quo(diff, new(big.Float).SetPrec(512).Abs(v))

				bound := new(big.Float).SetPrec(512).SetInt64(1)
				bound = scaleByRadixPow(bound, radix, int64(1-digits), 512)
				assert.True(t, rel.Cmp(bound) <= 0,
					"radix %d digits %d: %s -> %q -> %s (rel %s)", radix, digits, s, enc, got.Text('g', 40), rel.Text('g', 5))
			}
		}
	}
}

func TestPrecision(t *testing.T) {
	assert.Equal(t, uint(21), Precision(6, 10))
	assert.Equal(t, uint(41), Precision(12, 10))
	assert.Equal(t, uint(9), Precision(8, 2))
	assert.Equal(t, Precision(1, 10), Precision(0, 10))
}
