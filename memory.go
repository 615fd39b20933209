package enclavemath

// Memory is byte-addressable storage reached through virtual addresses.
// Addresses are plain integers; holding one grants no access until it has been
// validated against the trust region it is supposed to belong to.
type Memory interface {
	Read(addr uint64, length uint32) ([]byte, error)
	Write(addr uint64, data []byte) error
}

// Allocator manages blocks in a Memory. Address 0 is never a valid block.
type Allocator interface {
	Alloc(size uint32) (uint64, error)
	Realloc(ptr uint64, oldSize, newSize uint32) (uint64, error)
	Free(ptr uint64, size uint32)
}

// Null is the address that never refers to a block.
const Null uint64 = 0
