// Package boundary validates pointer ranges against the protected region.
//
// Every (address, length) pair that crosses the trust boundary is checked
// against a Region before it is dereferenced. Two checks exist:
//
//	Inside  - the whole range lies within the protected region
//	Outside - the whole range lies outside it
//
// A zero-length range is checked as one byte, and a range that wraps the
// address space is neither inside nor outside. A range that straddles the
// region edge fails both checks.
//
// A Guard pairs a Region with an abort hook. Check reports a boolean the
// caller turns into a recoverable error. Require treats a failed check as a
// trust violation: the hook runs with a *Violation and the calling goroutine
// panics, so execution never continues past it.
package boundary
