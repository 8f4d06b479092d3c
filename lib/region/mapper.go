// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

// Protection is the access mode applied to a page range.
type Protection int

const (
	// ProtectNone makes pages inaccessible. Any access faults.
	ProtectNone Protection = iota

	// ProtectReadWrite makes pages readable and writable.
	ProtectReadWrite
)

// String returns the mmap-style name of the protection.
func (p Protection) String() string {
	switch p {
	case ProtectNone:
		return "none"
	case ProtectReadWrite:
		return "read-write"
	default:
		return "unknown"
	}
}

// Mapper is the memory reservation service a Region is built on.
// Implementations must return zero-initialized, page-aligned,
// read-write mappings from Map.
type Mapper interface {
	// PageSize returns the platform page size in bytes.
	PageSize() int

	// Map reserves a private anonymous mapping of length bytes.
	Map(length int) ([]byte, error)

	// Protect changes the protection of a page-aligned sub-range of
	// a mapping previously returned by Map.
	Protect(pages []byte, protection Protection) error

	// Unmap releases a mapping previously returned by Map.
	Unmap(mapping []byte) error
}
