package enclave

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/enclave-math/boundary"
)

// DefaultMaxInputLength bounds the terminator scan of an argument.
const DefaultMaxInputLength = 1 << 20

// Config holds enclave settings. The zero value is usable.
type Config struct {
	// OnViolation is called with a trust violation before the calling
	// goroutine panics. nil means boundary.DefaultAbort, which exits.
	OnViolation boundary.AbortFunc

	// Registerer receives the enclave metrics. nil leaves them unregistered.
	Registerer prometheus.Registerer

	// Radix is the serialization radix for integers and decimals, 2..62.
	// 0 means 10.
	Radix int

	// MaxInputLength bounds an argument's length in bytes, excluding the
	// terminator. 0 means DefaultMaxInputLength.
	MaxInputLength uint32
}
