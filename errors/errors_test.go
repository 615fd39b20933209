package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseFetch,
				Kind:   KindOutOfBounds,
				Op:     "fetch_result",
				Addr:   0x40000010,
				Len:    9,
				Detail: "destination inside protected region",
			},
			contains: []string{"[fetch]", "out_of_bounds", "in fetch_result", "0x40000010+9", "destination inside"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindInvalidFormat,
			},
			contains: []string{"[decode]", "invalid_format"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseStage,
				Kind:   KindAllocation,
				Detail: "heap exhausted",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[stage]", "allocation", "heap exhausted", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidInput,
		Cause: cause,
	}

	assert.ErrorIs(t, err.Unwrap(), cause)
	assert.ErrorIs(t, errors.Unwrap(err), cause)
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseFetch,
		Kind:  KindSizeMismatch,
		Op:    "fetch_result",
	}

	assert.True(t, err.Is(&Error{Phase: PhaseFetch, Kind: KindSizeMismatch}))
	assert.False(t, err.Is(&Error{Phase: PhaseStage, Kind: KindSizeMismatch}))
	assert.False(t, err.Is(&Error{Phase: PhaseFetch, Kind: KindEmpty}))
	assert.ErrorIs(t, err, &Error{Phase: PhaseFetch, Kind: KindSizeMismatch})
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseMarshal, KindOutOfBounds).
		Op("add").
		Range(0x10, 4).
		Value(42).
		Cause(cause).
		Detail("argument %d not outside", 1).
		Build()

	assert.Equal(t, PhaseMarshal, err.Phase)
	assert.Equal(t, KindOutOfBounds, err.Kind)
	assert.Equal(t, "add", err.Op)
	assert.Equal(t, uint64(0x10), err.Addr)
	assert.Equal(t, uint64(4), err.Len)
	assert.Equal(t, 42, err.Value)
	assert.ErrorIs(t, err.Cause, cause)
	assert.Equal(t, "argument 1 not outside", err.Detail)
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidFormat truncates preview", func(t *testing.T) {
		long := "1234567890123456789012345678901234567890"
		err := InvalidFormat(PhaseDecode, long, "bad digit")
		assert.Equal(t, KindInvalidFormat, err.Kind)
		assert.Equal(t, long, err.Value)
		assert.Contains(t, err.Detail, "...")
		assert.NotContains(t, err.Detail, long)
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		err := SizeMismatch(PhaseFetch, 12, 3)
		assert.Equal(t, KindSizeMismatch, err.Kind)
		assert.Contains(t, err.Error(), "requested 12 bytes, 3 available")
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		cause := errors.New("oom")
		err := AllocationFailed(PhaseAlloc, 64, cause)
		assert.Equal(t, KindAllocation, err.Kind)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseMarshal, 0x20, 8, "straddles region")
		assert.Equal(t, uint64(0x20), err.Addr)
		assert.Equal(t, uint64(8), err.Len)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, KindEmpty, Empty(PhaseFetch).Kind)
	})

	t.Run("NotFound", func(t *testing.T) {
		assert.Contains(t, NotFound(PhaseStage, "context", 7).Error(), "context 7 not found")
	})
}

func TestWithOp(t *testing.T) {
	assert.Nil(t, WithOp(nil, "add"))

	orig := Empty(PhaseFetch)
	tagged := WithOp(orig, "fetch_result")
	require.NotNil(t, tagged)
	assert.Equal(t, "fetch_result", tagged.Op)
	assert.Empty(t, orig.Op, "original must not be mutated")

	plain := errors.New("boom")
	wrapped := WithOp(plain, "divide")
	assert.Equal(t, PhaseCompute, wrapped.Phase)
	assert.ErrorIs(t, wrapped, plain)
}
