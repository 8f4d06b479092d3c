// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(darwin || linux)

package sandbox

import "github.com/bureau-foundation/memsandbox/lib/region"

// Capabilities describes what the host offers for guarded sandboxes.
// Only linux and darwin provide guarded regions.
type Capabilities struct {
	PageSize          int
	AnonymousMapping  bool
	GuardProtection   bool
	GuardTrap         bool
	MaxMapCount       int
	AddressSpaceLimit uint64
	ReleaseError      string
}

// DetectCapabilities probes the host with the system mapper.
func DetectCapabilities() *Capabilities {
	return detectCapabilities(region.SystemMapper())
}

func detectCapabilities(mapper region.Mapper) *Capabilities {
	return &Capabilities{PageSize: mapper.PageSize(), MaxMapCount: -1}
}

// CanReserveGuarded returns true if guarded sandboxes can be created.
func (c *Capabilities) CanReserveGuarded() bool {
	return false
}

// SkipReason returns why guarded sandboxes are unavailable.
func (c *Capabilities) SkipReason() string {
	return "guarded regions require linux or darwin"
}
