// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package sandbox

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/memsandbox/lib/region"
)

// Capabilities describes what the host offers for guarded sandboxes.
type Capabilities struct {
	// PageSize is the platform page size; 0 if the query failed.
	PageSize int

	// AnonymousMapping is true if a private anonymous mapping could be
	// created and released.
	AnonymousMapping bool

	// GuardProtection is true if a guarded region could be reserved,
	// meaning mprotect(PROT_NONE) works on anonymous mappings.
	GuardProtection bool

	// GuardTrap is true if a write to a guard page was converted into
	// a GuardViolation by Region.Guard.
	GuardTrap bool

	// MaxMapCount is vm.max_map_count, or -1 where it cannot be read.
	// Each guarded sandbox costs up to three mappings.
	MaxMapCount int

	// AddressSpaceLimit is the soft RLIMIT_AS in bytes, 0 if unlimited.
	AddressSpaceLimit uint64

	// ReleaseError is the first error from unmapping a test region.
	// A region that cannot be released does not count as available.
	ReleaseError string
}

// DetectCapabilities probes the host with the system mapper.
func DetectCapabilities() *Capabilities {
	return detectCapabilities(region.SystemMapper())
}

func detectCapabilities(mapper region.Mapper) *Capabilities {
	caps := &Capabilities{
		PageSize:    mapper.PageSize(),
		MaxMapCount: readMaxMapCount(),
	}
	if caps.PageSize <= 0 {
		return caps
	}

	if probe, err := region.ReserveWith(uint64(caps.PageSize), region.Options{Mapper: mapper}); err == nil {
		caps.AnonymousMapping = caps.released(probe)
	}

	if guarded, err := region.ReserveWith(uint64(caps.PageSize), region.Options{GuardPages: true, Mapper: mapper}); err == nil {
		trapped := trapsFrontGuard(guarded)
		if caps.released(guarded) {
			caps.GuardProtection = true
			caps.GuardTrap = trapped
		}
	}

	caps.AddressSpaceLimit = addressSpaceLimit()
	return caps
}

// released unmaps a test region and records the first failure.
func (c *Capabilities) released(reserved *region.Region) bool {
	err := reserved.Release()
	if err != nil && c.ReleaseError == "" {
		c.ReleaseError = err.Error()
	}
	return err == nil
}

// trapsFrontGuard writes one byte before the usable range inside
// Guard and reports whether the write was trapped.
func trapsFrontGuard(guarded *region.Region) bool {
	usable := guarded.UsablePointer()
	err := guarded.Guard(func() {
		pokeBefore(usable)
	})
	return errors.Is(err, region.ErrGuardViolation)
}

//go:noinline
func pokeBefore(pointer unsafe.Pointer) {
	*(*byte)(unsafe.Add(pointer, -1)) = 0
}

func readMaxMapCount() int {
	data, err := os.ReadFile("/proc/sys/vm/max_map_count")
	if err != nil {
		return -1
	}
	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return -1
	}
	return value
}

func addressSpaceLimit() uint64 {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &limit); err != nil {
		return 0
	}
	if uint64(limit.Cur) == unix.RLIM_INFINITY {
		return 0
	}
	return uint64(limit.Cur)
}

// CanReserveGuarded returns true if guarded sandboxes can be created.
func (c *Capabilities) CanReserveGuarded() bool {
	return c.PageSize > 0 && c.AnonymousMapping && c.GuardProtection
}

// SkipReason returns a human-readable reason why guarded sandboxes
// are unavailable, or the empty string if they are available.
func (c *Capabilities) SkipReason() string {
	switch {
	case c.PageSize <= 0:
		return "page size query failed"
	case !c.AnonymousMapping:
		return "anonymous mmap is not permitted"
	case !c.GuardProtection:
		return "mprotect(PROT_NONE) on anonymous mappings failed"
	}
	return ""
}
