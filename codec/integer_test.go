package codec

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/enclave-math/errors"
)

func mustInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad test literal %q", s)
	return v
}

func TestIntRoundTrip(t *testing.T) {
	values := []string{
		"0",
		"1",
		"-1",
		"579",
		"-30",
		"-3495834905870984801203923984598723",
		"340282366920938463463374607431768211456",
	}
	for _, radix := range []int{2, 8, 10, 16, 36, 37, 62} {
		for _, s := range values {
			v := mustInt(t, s)
			enc := EncodeInt(v, radix)
			got, err := DecodeInt(enc, radix)
			require.NoError(t, err, "radix %d value %s encoded %q", radix, s, enc)
			assert.Zero(t, v.Cmp(got), "radix %d: %s -> %q -> %s", radix, s, enc, got)
		}
	}
}

func TestEncodeInt(t *testing.T) {
	assert.Equal(t, "579", EncodeInt(big.NewInt(579), 10))
	assert.Equal(t, "-30", EncodeInt(big.NewInt(-30), 10))
	assert.Equal(t, "ff", EncodeInt(big.NewInt(255), 16))
	assert.Equal(t, "Z", EncodeInt(big.NewInt(61), 62))
	assert.Equal(t, "10", EncodeInt(big.NewInt(62), 62))
	assert.Equal(t, "0", EncodeInt(nil, 10))
}

func TestDecodeIntNormalizes(t *testing.T) {
	v, err := DecodeInt("+007", 10)
	require.NoError(t, err)
	assert.Equal(t, "7", EncodeInt(v, 10))

	v, err = DecodeInt("-0", 10)
	require.NoError(t, err)
	assert.Equal(t, "0", EncodeInt(v, 10))

	v, err = DecodeInt("FF", 16)
	require.NoError(t, err)
	assert.Equal(t, int64(255), v.Int64())
}

func TestDecodeIntRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		radix int
		kind  errors.Kind
	}{
		{"empty", "", 10, errors.KindInvalidFormat},
		{"bare sign", "-", 10, errors.KindInvalidFormat},
		{"digit outside radix", "12a", 10, errors.KindInvalidFormat},
		{"binary two", "102", 2, errors.KindInvalidFormat},
		{"embedded space", "1 2", 10, errors.KindInvalidFormat},
		{"underscore", "1_000", 10, errors.KindInvalidFormat},
		{"double sign", "--1", 10, errors.KindInvalidFormat},
		{"decimal point", "1.5", 10, errors.KindInvalidFormat},
		{"radix too small", "1", 1, errors.KindInvalidInput},
		{"radix too large", "1", 63, errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInt(tt.input, tt.radix)
			require.Error(t, err)
			assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseDecode, Kind: tt.kind})
		})
	}
}

func TestCodecBindsRadix(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)

	c, err := New(62)
	require.NoError(t, err)
	assert.Equal(t, 62, c.Radix())

	v := mustInt(t, "-3495834905870984801203923984598723")
	got, err := c.DecodeInt(c.EncodeInt(v))
	require.NoError(t, err)
	assert.Zero(t, v.Cmp(got))
	assert.Less(t, len(c.EncodeInt(v)), len(v.String()))
}
