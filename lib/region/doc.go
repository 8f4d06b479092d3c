// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package region reserves guarded spans of virtual memory.
//
// A [Region] is a private, anonymous mapping obtained directly from the
// operating system, outside the Go heap. When guard pages are enabled
// the first and last page of the mapping are protected PROT_NONE for
// the lifetime of the Region, so a write that runs off either end of
// the usable range faults at the instruction that made it instead of
// landing in unrelated memory.
//
// Requested sizes are rounded up to whole pages because protection is
// only controllable at page granularity. The mapped size of a guarded
// Region is therefore ceil(size/page)*page + 2*page, and the usable
// range starts immediately after the front guard page. [Region.Usable]
// returns a slice whose length and capacity equal the requested size,
// so ordinary Go indexing panics on overrun before the slack bytes at
// the end of the last page are ever reached; the guard pages catch
// overruns made through unsafe pointers.
//
// Lifecycle:
//
//   - [Reserve] / [ReserveWith] map and protect. A protection failure
//     unmaps everything before returning, so no unprotected mapping
//     survives a failed construction.
//   - [Region.Release] unmaps the entire reservation exactly once.
//     Further calls are no-ops.
//
// A guard page access is a hardware fault. Left alone it terminates
// the process. [Region.Guard] runs a function with
// runtime/debug.SetPanicOnFault enabled and converts faults inside
// this Region's guard pages into a [*GuardViolation] error; any other
// fault is re-raised.
//
// A Region is an exclusive owning handle. It must not be copied; a
// by-value copy panics on first use. It is not safe for concurrent
// use: callers serialize access to a single Region, while distinct
// Regions are fully independent.
//
// The operating system is reached through the [Mapper] interface.
// [SystemMapper] is backed by golang.org/x/sys/unix; tests inject
// their own to observe or fail individual calls.
package region
