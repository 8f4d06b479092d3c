// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"errors"
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/bureau-foundation/memsandbox/lib/region"
)

var (
	ErrCapacityExceeded = errors.New("arena: capacity exceeded")
	ErrInvalidAlignment = errors.New("arena: alignment must be a power of two")
	ErrDetached         = errors.New("arena: backing memory has been detached")

	// ErrSizeOverflow is shared with the region package so callers see
	// a single overflow condition regardless of which layer caught it.
	ErrSizeOverflow = region.ErrSizeOverflow
)

// rawTag is the bookkeeping tag of untyped allocations.
const rawTag = "raw"

// Allocation describes one sub-range handed out by an Arena.
type Allocation struct {
	// Offset is the start of the range relative to the arena's memory.
	Offset uint64

	ElementSize uint64
	Count       uint64

	// Align is the alignment the offset satisfies; 1 for raw
	// allocations.
	Align uint64

	// Tag names the element type for typed allocations and is "raw"
	// otherwise. It is bookkeeping only.
	Tag string
}

// Size returns ElementSize * Count.
func (a Allocation) Size() uint64 {
	return a.ElementSize * a.Count
}

// End returns the offset one past the last byte of the range.
func (a Allocation) End() uint64 {
	return a.Offset + a.Size()
}

// Arena is a forward-only bump allocator over a fixed memory span.
type Arena struct {
	_ noCopy

	memory  []byte
	cursor  uint64
	records []Allocation
}

// New returns an Arena that allocates from memory. The Arena does not
// own memory; the caller keeps it alive and releases it.
func New(memory []byte) *Arena {
	return &Arena{memory: memory}
}

// Allocate reserves elementSize*count bytes at the cursor with no
// alignment padding.
func (a *Arena) Allocate(elementSize, count uint64) (Allocation, error) {
	return a.AllocateAligned(elementSize, count, 1, rawTag)
}

// AllocateAligned reserves elementSize*count bytes at the first offset
// at or after the cursor that is a multiple of align. Padding counts
// against capacity. On failure the cursor does not move.
func (a *Arena) AllocateAligned(elementSize, count, align uint64, tag string) (Allocation, error) {
	if a.memory == nil {
		return Allocation{}, ErrDetached
	}
	if align == 0 || align&(align-1) != 0 {
		return Allocation{}, fmt.Errorf("%w: got %d", ErrInvalidAlignment, align)
	}

	high, total := bits.Mul64(elementSize, count)
	if high != 0 {
		return Allocation{}, fmt.Errorf("%w: %d elements of %d bytes", ErrSizeOverflow, count, elementSize)
	}

	offset, err := alignUp(a.cursor, align)
	if err != nil {
		return Allocation{}, err
	}
	end, carry := bits.Add64(offset, total, 0)
	if carry != 0 {
		return Allocation{}, fmt.Errorf("%w: offset %d plus %d bytes", ErrSizeOverflow, offset, total)
	}

	capacity := uint64(len(a.memory))
	if end > capacity {
		return Allocation{}, fmt.Errorf("%w: requested %d bytes at offset %d, %d of %d remaining",
			ErrCapacityExceeded, total, offset, capacity-a.cursor, capacity)
	}

	allocation := Allocation{
		Offset:      offset,
		ElementSize: elementSize,
		Count:       count,
		Align:       align,
		Tag:         tag,
	}
	a.cursor = end
	a.records = append(a.records, allocation)
	return allocation, nil
}

// alignUp rounds offset up to a multiple of align, which must be a
// power of two.
func alignUp(offset, align uint64) (uint64, error) {
	mask := align - 1
	sum, carry := bits.Add64(offset, mask, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: aligning offset %d to %d", ErrSizeOverflow, offset, align)
	}
	return sum &^ mask, nil
}

// Bytes returns the memory of allocation. Length and capacity are the
// allocation size, so appends never spill into a neighbour.
func (a *Arena) Bytes(allocation Allocation) []byte {
	if a.memory == nil {
		panic("arena: Bytes on detached arena")
	}
	if allocation.End() > a.cursor || allocation.End() < allocation.Offset {
		panic(fmt.Sprintf("arena: allocation [%d, %d) was not issued by this arena",
			allocation.Offset, allocation.End()))
	}
	return a.memory[allocation.Offset:allocation.End():allocation.End()]
}

// pointer returns the address of offset within the arena's memory.
func (a *Arena) pointer(offset uint64) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(a.memory)), offset)
}

// Records returns a copy of every allocation made so far, in order.
func (a *Arena) Records() []Allocation {
	records := make([]Allocation, len(a.records))
	copy(records, a.records)
	return records
}

// Used returns the cursor position: bytes consumed, padding included.
func (a *Arena) Used() uint64 {
	return a.cursor
}

// Capacity returns the size of the arena's memory.
func (a *Arena) Capacity() uint64 {
	return uint64(len(a.memory))
}

// Remaining returns the bytes between the cursor and the end.
func (a *Arena) Remaining() uint64 {
	return a.Capacity() - a.cursor
}

// Detach drops the arena's reference to its memory. Every later
// allocation fails with ErrDetached. The owner calls this before
// releasing the memory.
func (a *Arena) Detach() {
	a.memory = nil
}

// noCopy makes go vet's copylocks check report copies of Arena.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
