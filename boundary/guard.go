package boundary

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// AbortExitCode is the process status used by DefaultAbort.
const AbortExitCode = 134

// Violation describes a failed Require. It is a fatal condition and is never
// returned to callers as an error value.
type Violation struct {
	Op       string
	Ptr      uint64
	Len      uint64
	Expected Location
	Region   Region
}

func (v *Violation) Error() string {
	return fmt.Sprintf("trust violation in %s: 0x%x+%d not %s %s",
		v.Op, v.Ptr, v.Len, v.Expected, v.Region)
}

// AbortFunc receives a violation before the calling goroutine panics.
type AbortFunc func(*Violation)

// DefaultAbort logs the violation and terminates the process.
func DefaultAbort(v *Violation) {
	l := Logger()
	l.Error("trust boundary violated, aborting",
		zap.String("op", v.Op),
		zap.Uint64("ptr", v.Ptr),
		zap.Uint64("len", v.Len),
		zap.Stringer("expected", v.Expected),
		zap.Stringer("region", v.Region))
	_ = l.Sync()
	fmt.Fprintln(os.Stderr, v.Error())
	os.Exit(AbortExitCode)
}

// Guard checks ranges against one region.
type Guard struct {
	region Region
	abort  AbortFunc
}

// NewGuard returns a guard for region. A nil abort uses DefaultAbort.
func NewGuard(region Region, abort AbortFunc) *Guard {
	if abort == nil {
		abort = DefaultAbort
	}
	return &Guard{region: region, abort: abort}
}

// Region returns the protected region.
func (g *Guard) Region() Region {
	return g.region
}

// Check reports whether the range is on the expected side.
func (g *Guard) Check(ptr, n uint64, loc Location) bool {
	return g.region.Validate(ptr, n, loc)
}

// Require aborts unless the range is on the expected side. It does not
// return on failure: after the abort hook runs it panics with the *Violation.
func (g *Guard) Require(op string, ptr, n uint64, loc Location) {
	if g.region.Validate(ptr, n, loc) {
		return
	}
	v := &Violation{
		Op:       op,
		Ptr:      ptr,
		Len:      n,
		Expected: loc,
		Region:   g.region,
	}
	g.abort(v)
	panic(v)
}
