// Package interpose wraps the numeric engine's allocator so that every
// pointer it is handed back lies in protected memory.
//
// The engine's own bookkeeping is trusted, but the pointers passed to
// Realloc and Free are not: a forged pointer would let the engine write
// allocator metadata anywhere. The interposer validates each one with
// boundary.Guard.Require before delegating, so a pointer outside the
// protected region aborts instead of corrupting host memory.
package interpose
