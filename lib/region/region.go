// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"errors"
	"fmt"
	"math"
	"unsafe"
)

var (
	ErrAllocationFailure = errors.New("region: operating system refused the mapping")
	ErrProtectionFailure = errors.New("region: guard page protection failed")
	ErrInvalidSize       = errors.New("region: invalid size")
	ErrSizeOverflow      = errors.New("region: size arithmetic overflow")
	ErrPageSize          = errors.New("region: page size query returned an unusable value")
)

// Options configures [ReserveWith].
type Options struct {
	// GuardPages adds one PROT_NONE page before and after the usable
	// range.
	GuardPages bool

	// Mapper performs the mapping system calls. Nil selects
	// [SystemMapper].
	Mapper Mapper
}

// Region is an exclusively owned, page-aligned mapping, optionally
// flanked by guard pages. See the package documentation for the
// ownership and concurrency rules.
type Region struct {
	_ noCopy

	// self points at the Region itself. A by-value copy carries the
	// original's address, which is how copies are detected.
	self *Region

	mapper   Mapper
	mapping  []byte
	usable   []byte
	base     uintptr
	size     uint64
	pageSize int
	guarded  bool
	released bool
}

// Reserve maps a Region of at least size usable bytes using the
// system mapper.
func Reserve(size uint64, guardPages bool) (*Region, error) {
	return ReserveWith(size, Options{GuardPages: guardPages})
}

// ReserveWith maps a Region of at least size usable bytes.
//
// A zero size is rejected with [ErrInvalidSize]. A refused mapping
// returns [ErrAllocationFailure]; a failed guard protection returns
// [ErrProtectionFailure] after the whole mapping has been unmapped.
func ReserveWith(size uint64, options Options) (*Region, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: size must be positive", ErrInvalidSize)
	}

	mapper := options.Mapper
	if mapper == nil {
		mapper = SystemMapper()
	}

	pageSize := mapper.PageSize()
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrPageSize, pageSize)
	}

	mappedSize, err := MappedSize(size, pageSize, options.GuardPages)
	if err != nil {
		return nil, err
	}

	mapping, err := mapper.Map(mappedSize)
	if err != nil {
		return nil, fmt.Errorf("%w: mapping %d bytes: %w", ErrAllocationFailure, mappedSize, err)
	}

	usableStart := 0
	if options.GuardPages {
		if err := mapper.Protect(mapping[:pageSize], ProtectNone); err != nil {
			return nil, unwind(mapper, mapping, fmt.Errorf("%w: front guard page: %w", ErrProtectionFailure, err))
		}
		if err := mapper.Protect(mapping[mappedSize-pageSize:], ProtectNone); err != nil {
			return nil, unwind(mapper, mapping, fmt.Errorf("%w: back guard page: %w", ErrProtectionFailure, err))
		}
		usableStart = pageSize
	}

	usableEnd := usableStart + int(size)
	region := &Region{
		mapper:   mapper,
		mapping:  mapping,
		usable:   mapping[usableStart:usableEnd:usableEnd],
		base:     uintptr(unsafe.Pointer(unsafe.SliceData(mapping))),
		size:     size,
		pageSize: pageSize,
		guarded:  options.GuardPages,
	}
	region.self = region
	return region, nil
}

// unwind releases a mapping whose construction failed and returns
// cause, joined with the unmap error if that failed too.
func unwind(mapper Mapper, mapping []byte, cause error) error {
	if err := mapper.Unmap(mapping); err != nil {
		return errors.Join(cause, fmt.Errorf("region: unmapping after failed construction: %w", err))
	}
	return cause
}

// MappedSize returns the number of bytes a Region of the given usable
// size occupies: size rounded up to whole pages, plus two pages when
// guarded. Returns [ErrSizeOverflow] if the result does not fit an int.
func MappedSize(size uint64, pageSize int, guardPages bool) (int, error) {
	if pageSize <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrPageSize, pageSize)
	}
	page := uint64(pageSize)

	pages := size / page
	if size%page != 0 {
		pages++
	}
	if guardPages {
		if pages > math.MaxUint64-2 {
			return 0, fmt.Errorf("%w: %d bytes in %d-byte pages", ErrSizeOverflow, size, pageSize)
		}
		pages += 2
	}

	if pages > uint64(math.MaxInt)/page {
		return 0, fmt.Errorf("%w: %d bytes in %d-byte pages", ErrSizeOverflow, size, pageSize)
	}
	return int(pages * page), nil
}

// check panics if r is a by-value copy or has been released.
func (r *Region) check() {
	if r.self != r {
		panic("region: Region copied by value; use the *Region returned by Reserve")
	}
	if r.released {
		panic("region: use of released Region")
	}
}

// Usable returns the caller-visible range. Its length and capacity
// are the requested size. The slice points into the mapping and must
// not be used after Release.
func (r *Region) Usable() []byte {
	r.check()
	return r.usable
}

// UsablePointer returns the address of the first usable byte.
func (r *Region) UsablePointer() unsafe.Pointer {
	r.check()
	return unsafe.Pointer(unsafe.SliceData(r.usable))
}

// UsableSize returns the originally requested size, not the rounded
// or guard-inclusive size.
func (r *Region) UsableSize() uint64 {
	r.check()
	return r.size
}

// MappedSize returns the total size of the mapping, guard pages
// included.
func (r *Region) MappedSize() int {
	r.check()
	return len(r.mapping)
}

// PageSize returns the page size the Region was mapped with.
func (r *Region) PageSize() int {
	r.check()
	return r.pageSize
}

// GuardPages reports whether the Region is flanked by guard pages.
func (r *Region) GuardPages() bool {
	r.check()
	return r.guarded
}

// Released reports whether Release has been called.
func (r *Region) Released() bool {
	if r.self != r {
		panic("region: Region copied by value; use the *Region returned by Reserve")
	}
	return r.released
}

// Release unmaps the entire reservation, guard pages included. Only
// the first call unmaps; later calls return nil. After Release every
// accessor panics.
func (r *Region) Release() error {
	if r.self != r {
		panic("region: Region copied by value; use the *Region returned by Reserve")
	}
	if r.released {
		return nil
	}
	r.released = true

	mapping := r.mapping
	r.mapping = nil
	r.usable = nil

	if err := r.mapper.Unmap(mapping); err != nil {
		return fmt.Errorf("region: unmapping %d bytes: %w", len(mapping), err)
	}
	return nil
}

// noCopy makes go vet's copylocks check report copies of Region.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
