// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package arena implements a bump allocator over a fixed span of
// memory, normally the usable range of a guarded [region.Region].
//
// An [Arena] hands out non-overlapping sub-ranges by advancing a
// cursor that only ever moves forward. There is no per-allocation
// free: every [Allocation] becomes invalid at once when the backing
// memory is released. Requests that would run past the end of the
// span fail with [ErrCapacityExceeded] and leave the cursor where it
// was; size arithmetic that overflows fails with [ErrSizeOverflow]
// before any memory is touched.
//
// Typed construction:
//
//   - [Construct] allocates a correctly aligned span of T and runs one
//     [Lifecycle] initializer on every element. If an initializer
//     fails, the elements already built are torn down in reverse order
//     and the span is zeroed; the cursor stays advanced.
//   - [Fill] copies a single value into every element.
//
// Memory outside the Go heap is invisible to the garbage collector,
// so T must be pointer-free. Types containing pointers, slices, maps,
// strings, channels, functions or interfaces are rejected with
// [ErrPointerType].
//
// An Arena is not safe for concurrent use.
package arena
