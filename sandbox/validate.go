// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"io"

	"github.com/bureau-foundation/memsandbox/lib/region"
)

// minimumMapCount is the kernel default for vm.max_map_count. Hosts
// configured below it are likely to run out of mappings long before
// they run out of memory.
const minimumMapCount = 65530

// ValidationResult holds the result of a validation check.
type ValidationResult struct {
	Name    string
	Passed  bool
	Message string
	Warning bool // True if this is a warning, not an error.
}

// Validator performs pre-flight validation for guarded sandboxes.
type Validator struct {
	mapper  region.Mapper
	results []ValidationResult
	errors  int
}

// NewValidator creates a validator that probes with the system mapper.
func NewValidator() *Validator {
	return NewValidatorWithMapper(region.SystemMapper())
}

// NewValidatorWithMapper creates a validator that probes through
// mapper.
func NewValidatorWithMapper(mapper region.Mapper) *Validator {
	return &Validator{
		mapper:  mapper,
		results: make([]ValidationResult, 0),
	}
}

// Results returns all validation results.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors returns true if any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  true,
		Message: message,
	})
}

func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  true,
		Message: message,
		Warning: true,
	})
}

func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  false,
		Message: message,
	})
	v.errors++
}

// ValidateAll runs every check for sandboxes of the given capacity.
func (v *Validator) ValidateAll(capacity uint64) {
	caps := detectCapabilities(v.mapper)
	v.ValidatePageSize(caps)
	v.ValidateMapping(caps)
	v.ValidateGuardPages(caps)
	v.ValidateGuardTrap(caps)
	v.ValidateMapCount(caps)
	v.ValidateAddressSpace(caps, capacity)
}

// ValidatePageSize checks that the page size is a positive power of two.
func (v *Validator) ValidatePageSize(caps *Capabilities) {
	size := caps.PageSize
	if size <= 0 {
		v.fail("page_size", fmt.Sprintf("page size query returned %d", size))
		return
	}
	if size&(size-1) != 0 {
		v.fail("page_size", fmt.Sprintf("page size %d is not a power of two", size))
		return
	}
	v.pass("page_size", fmt.Sprintf("%d bytes", size))
}

// ValidateMapping checks that anonymous private mappings work.
func (v *Validator) ValidateMapping(caps *Capabilities) {
	if !caps.AnonymousMapping {
		if caps.ReleaseError != "" {
			v.fail("mmap", "munmap failed: "+caps.ReleaseError)
			return
		}
		v.fail("mmap", "cannot create a private anonymous mapping")
		return
	}
	v.pass("mmap", "private anonymous mappings available")
}

// ValidateGuardPages checks that guard pages can be protected.
func (v *Validator) ValidateGuardPages(caps *Capabilities) {
	if !caps.GuardProtection {
		if caps.ReleaseError != "" {
			v.fail("guard_pages", "munmap failed: "+caps.ReleaseError)
			return
		}
		v.fail("guard_pages", "mprotect(PROT_NONE) failed on an anonymous mapping")
		return
	}
	v.pass("guard_pages", "guard pages can be protected")
}

// ValidateGuardTrap checks that guard faults can be converted into
// errors. Without it, overruns still fault but terminate the process.
func (v *Validator) ValidateGuardTrap(caps *Capabilities) {
	if !caps.GuardProtection {
		v.warn("guard_trap", "skipped: guard pages unavailable")
		return
	}
	if !caps.GuardTrap {
		v.fail("guard_trap", "a write to a guard page was not trapped")
		return
	}
	v.pass("guard_trap", "guard page writes are trapped by Guard")
}

// ValidateMapCount checks vm.max_map_count headroom.
func (v *Validator) ValidateMapCount(caps *Capabilities) {
	switch {
	case caps.MaxMapCount < 0:
		v.warn("max_map_count", "cannot read vm.max_map_count (not Linux?)")
	case caps.MaxMapCount < minimumMapCount:
		v.warn("max_map_count", fmt.Sprintf("vm.max_map_count=%d is below the kernel default %d; "+
			"each guarded sandbox uses up to 3 mappings", caps.MaxMapCount, minimumMapCount))
	default:
		v.pass("max_map_count", fmt.Sprintf("vm.max_map_count=%d (~%d guarded sandboxes)",
			caps.MaxMapCount, caps.MaxMapCount/3))
	}
}

// ValidateAddressSpace checks that RLIMIT_AS leaves room for one
// sandbox of the given capacity.
func (v *Validator) ValidateAddressSpace(caps *Capabilities, capacity uint64) {
	if caps.AddressSpaceLimit == 0 {
		v.pass("address_space", "RLIMIT_AS unlimited")
		return
	}
	if caps.PageSize <= 0 || capacity == 0 {
		v.warn("address_space", fmt.Sprintf("RLIMIT_AS=%d bytes", caps.AddressSpaceLimit))
		return
	}
	mapped, err := region.MappedSize(capacity, caps.PageSize, true)
	if err != nil {
		v.fail("address_space", fmt.Sprintf("capacity %d: %v", capacity, err))
		return
	}
	if uint64(mapped) > caps.AddressSpaceLimit {
		v.fail("address_space", fmt.Sprintf("a %d-byte sandbox maps %d bytes, above RLIMIT_AS=%d",
			capacity, mapped, caps.AddressSpaceLimit))
		return
	}
	v.pass("address_space", fmt.Sprintf("RLIMIT_AS=%d bytes", caps.AddressSpaceLimit))
}

// PrintResults writes validation results to a writer.
func (v *Validator) PrintResults(w io.Writer) {
	for _, r := range v.results {
		var prefix string
		if r.Passed {
			if r.Warning {
				prefix = "⚠"
			} else {
				prefix = "✓"
			}
		} else {
			prefix = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintf(w, "Validation failed with %d error(s)\n", v.errors)
	} else {
		fmt.Fprintln(w, "Ready to create guarded sandboxes")
	}
}
