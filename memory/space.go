package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	enclavemath "github.com/wippyai/enclave-math"
	"github.com/wippyai/enclave-math/errors"
)

var _ enclavemath.Memory = (*Space)(nil)

// Space is a virtual address space made of non-overlapping segments.
// It implements enclavemath.Memory.
type Space struct {
	segments []*Segment
	mu       sync.RWMutex
}

// NewSpace creates an empty address space.
func NewSpace() *Space {
	return &Space{}
}

// Map adds seg. Its reserved extent must not overlap any mapped segment.
func (s *Space) Map(seg *Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi := seg.Base(), seg.Base()+seg.Reserved()
	for _, other := range s.segments {
		olo, ohi := other.Base(), other.Base()+other.Reserved()
		if lo < ohi && olo < hi {
			return errors.New(errors.PhaseMemory, errors.KindOutOfBounds).
				Range(lo, hi-lo).
				Detail("segment %q overlaps %q", seg.Name(), other.Name()).
				Build()
		}
	}
	s.segments = append(s.segments, seg)
	sort.Slice(s.segments, func(i, j int) bool {
		return s.segments[i].Base() < s.segments[j].Base()
	})
	return nil
}

// Resolve returns the segment holding [addr, addr+n).
func (s *Space) Resolve(addr, n uint64) (*Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, seg := range s.segments {
		if seg.Contains(addr, n) {
			return seg, nil
		}
	}
	return nil, errors.OutOfBounds(errors.PhaseMemory, addr, n, "unmapped range")
}

// Read copies length bytes at addr from whichever segment holds them.
func (s *Space) Read(addr uint64, length uint32) ([]byte, error) {
	seg, err := s.Resolve(addr, uint64(length))
	if err != nil {
		return nil, err
	}
	return seg.Read(addr, length)
}

// Write copies data to addr.
func (s *Space) Write(addr uint64, data []byte) error {
	seg, err := s.Resolve(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	return seg.Write(addr, data)
}

// ReadString reads a NUL-terminated string at addr, looking at no more than
// limit bytes. The terminator is not included.
func (s *Space) ReadString(addr uint64, limit uint32) (string, error) {
	seg, err := s.Resolve(addr, 1)
	if err != nil {
		return "", err
	}
	avail := seg.Base() + seg.Size() - addr
	n := uint64(limit) + 1
	if n > avail {
		n = avail
	}
	const chunk = 256
	var out []byte
	for off := uint64(0); off < n; off += chunk {
		size := uint64(chunk)
		if off+size > n {
			size = n - off
		}
		buf, err := seg.Read(addr+off, uint32(size))
		if err != nil {
			return "", err
		}
		for i, b := range buf {
			if b == 0 {
				return string(append(out, buf[:i]...)), nil
			}
		}
		out = append(out, buf...)
	}
	return "", errors.New(errors.PhaseMemory, errors.KindOutOfBounds).
		Range(addr, n).
		Detail("no terminator within %d bytes", limit).
		Build()
}

// Segments returns the mapped segments in address order.
func (s *Space) Segments() []*Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Segment(nil), s.segments...)
}

// Close closes every mapped segment.
func (s *Space) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for _, seg := range s.segments {
		if err := seg.Close(ctx); err != nil && first == nil {
			first = fmt.Errorf("close segment %s: %w", seg.Name(), err)
		}
	}
	s.segments = nil
	return first
}
