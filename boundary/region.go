package boundary

import "fmt"

// Location is the side of the boundary a range must be on.
type Location uint8

const (
	Inside Location = iota
	Outside
)

func (l Location) String() string {
	switch l {
	case Inside:
		return "inside"
	case Outside:
		return "outside"
	default:
		return fmt.Sprintf("location(%d)", uint8(l))
	}
}

// Region is the protected address range [Base, Base+Size).
type Region struct {
	Base uint64
	Size uint64
}

// End returns the first address past the region.
func (r Region) End() uint64 {
	return r.Base + r.Size
}

// span returns the half-open range for (ptr, n), with n == 0 widened to one
// byte. ok is false when the range wraps.
func span(ptr, n uint64) (lo, hi uint64, ok bool) {
	if n == 0 {
		n = 1
	}
	hi = ptr + n
	return ptr, hi, hi > ptr
}

// Within reports whether [ptr, ptr+n) lies entirely in the region.
func (r Region) Within(ptr, n uint64) bool {
	lo, hi, ok := span(ptr, n)
	if !ok || r.Size == 0 {
		return false
	}
	return lo >= r.Base && hi <= r.End()
}

// Outside reports whether [ptr, ptr+n) shares no byte with the region.
func (r Region) Outside(ptr, n uint64) bool {
	lo, hi, ok := span(ptr, n)
	if !ok {
		return false
	}
	return hi <= r.Base || lo >= r.End()
}

// Validate dispatches to Within or Outside.
func (r Region) Validate(ptr, n uint64, loc Location) bool {
	switch loc {
	case Inside:
		return r.Within(ptr, n)
	case Outside:
		return r.Outside(ptr, n)
	default:
		return false
	}
}

func (r Region) String() string {
	return fmt.Sprintf("[0x%x, 0x%x)", r.Base, r.End())
}
