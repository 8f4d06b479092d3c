// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox provides in-process memory isolation: typed memory
// that faults when a caller writes past its end.
//
// The central type is [Sandbox], which owns exactly one guarded
// [region.Region] and one [arena.Arena] bound to the region's usable
// range. Callers draw raw allocations with [Sandbox.AllocateRaw] and
// typed, in-place constructed values with [Construct] and [Fill].
// Every byte handed out lies strictly inside the region's usable
// range; the guard pages on either side turn an overrun made through
// an unsafe pointer into a hardware fault at the offending access.
//
// A guard fault terminates the process unless the access happens
// inside [Sandbox.Guard], which converts faults in this sandbox's
// guard pages into a [*region.GuardViolation] error.
//
// Allocations are never freed individually. [Sandbox.Close] releases
// the region, and with it every allocation, exactly once. After Close
// every operation returns [ErrClosed].
//
// A Sandbox is a move-only owning handle. The API hands out only
// *Sandbox; a by-value copy panics on first use, because two owners
// could otherwise unmap or reprotect the same pages independently.
// A Sandbox is not safe for concurrent use: the caller must serialize
// access to one instance. Distinct sandboxes own disjoint mappings and
// may be used from different goroutines without coordination.
//
// [Validator] performs pre-flight checks on the host (page size,
// anonymous mappings, guard protection, guard fault trapping, mapping
// count and address space limits) and [DetectCapabilities] reports the
// same facts as a struct for programmatic use.
package sandbox
