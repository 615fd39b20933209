package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode   Phase = "encode"   // number to string
	PhaseDecode   Phase = "decode"   // string to number
	PhaseMarshal  Phase = "marshal"  // copying arguments across the boundary
	PhaseCompute  Phase = "compute"  // numeric engine
	PhaseStage    Phase = "stage"    // result staging
	PhaseFetch    Phase = "fetch"    // result retrieval
	PhaseAlloc    Phase = "alloc"    // heap operations
	PhaseMemory   Phase = "memory"   // address space access
	PhaseLaunch   Phase = "launch"   // enclave creation
	PhasePlatform Phase = "platform" // capability detection
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidFormat  Kind = "invalid_format"
	KindInvalidInput   Kind = "invalid_input"
	KindAllocation     Kind = "allocation"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindNilPointer     Kind = "nil_pointer"
	KindSizeMismatch   Kind = "size_mismatch"
	KindEmpty          Kind = "empty"
	KindNotInitialized Kind = "not_initialized"
	KindNotFound       Kind = "not_found"
	KindOverflow       Kind = "overflow"
	KindDivisionByZero Kind = "division_by_zero"
	KindUnsupported    Kind = "unsupported"
	KindClosed         Kind = "closed"
	KindCancelled      Kind = "cancelled"
)

// Error is the structured error type for recoverable failures.
// Trust boundary violations never surface as an Error.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
	Addr   uint64
	Len    uint64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Addr != 0 || e.Len != 0 {
		fmt.Fprintf(&b, " at 0x%x+%d", e.Addr, e.Len)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the call that failed
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Range sets the address range involved
func (b *Builder) Range(addr, length uint64) *Builder {
	b.err.Addr = addr
	b.err.Len = length
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidFormat creates a malformed serialized value error
func InvalidFormat(phase Phase, input string, detail string) *Error {
	preview := input
	if len(preview) > 32 {
		preview = preview[:32] + "..."
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidFormat,
		Detail: fmt.Sprintf("%s: %q", detail, preview),
		Value:  input,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// OutOfBounds creates an error for a range outside its expected region
func OutOfBounds(phase Phase, addr, length uint64, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Addr:   addr,
		Len:    length,
		Detail: detail,
	}
}

// NilPointer creates a null address error
func NilPointer(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Detail: fmt.Sprintf("%s is null", what),
	}
}

// SizeMismatch creates an error for a request larger than what is available
func SizeMismatch(phase Phase, requested, available uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSizeMismatch,
		Detail: fmt.Sprintf("requested %d bytes, %d available", requested, available),
		Value:  requested,
	}
}

// Empty creates an error for a fetch with nothing pending
func Empty(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEmpty,
		Detail: "no pending result",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what string, id any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %v not found", what, id),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Closed creates an error for use after close
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s closed", what),
	}
}

// WithOp returns a copy of err tagged with the call name. Non-*Error values
// are wrapped as compute failures.
func WithOp(err error, op string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		c := *e
		c.Op = op
		return &c
	}
	return &Error{Phase: PhaseCompute, Kind: KindInvalidInput, Op: op, Cause: err}
}
