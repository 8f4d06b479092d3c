// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"bytes"
	"strings"
	"syscall"
	"testing"
)

func resultNamed(t *testing.T, v *Validator, name string) ValidationResult {
	t.Helper()
	for _, result := range v.Results() {
		if result.Name == name {
			return result
		}
	}
	t.Fatalf("no result named %q in %+v", name, v.Results())
	return ValidationResult{}
}

func TestValidatePageSize(t *testing.T) {
	tests := []struct {
		name     string
		pageSize int
		passed   bool
	}{
		{"4k", 4096, true},
		{"16k", 16384, true},
		{"zero", 0, false},
		{"not power of two", 3000, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := NewValidatorWithMapper(&countingMapper{pageSize: test.pageSize})
			v.ValidatePageSize(&Capabilities{PageSize: test.pageSize})
			if got := resultNamed(t, v, "page_size").Passed; got != test.passed {
				t.Errorf("Passed = %v, want %v", got, test.passed)
			}
			if v.HasErrors() == test.passed {
				t.Errorf("HasErrors = %v with Passed = %v", v.HasErrors(), test.passed)
			}
		})
	}
}

func TestValidateMapCount(t *testing.T) {
	tests := []struct {
		name        string
		maxMapCount int
		warning     bool
	}{
		{"unreadable", -1, true},
		{"low", 1024, true},
		{"default", 65530, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := NewValidatorWithMapper(&countingMapper{pageSize: 4096})
			v.ValidateMapCount(&Capabilities{MaxMapCount: test.maxMapCount})
			result := resultNamed(t, v, "max_map_count")
			if !result.Passed {
				t.Error("max_map_count never fails validation")
			}
			if result.Warning != test.warning {
				t.Errorf("Warning = %v, want %v", result.Warning, test.warning)
			}
		})
	}
}

func TestValidateAddressSpace(t *testing.T) {
	v := NewValidatorWithMapper(&countingMapper{pageSize: 4096})
	v.ValidateAddressSpace(&Capabilities{PageSize: 4096, AddressSpaceLimit: 8192}, 4096)
	if resultNamed(t, v, "address_space").Passed {
		t.Error("a 12 KiB mapping should not fit an 8 KiB RLIMIT_AS")
	}

	v = NewValidatorWithMapper(&countingMapper{pageSize: 4096})
	v.ValidateAddressSpace(&Capabilities{PageSize: 4096}, 1<<30)
	if !resultNamed(t, v, "address_space").Passed {
		t.Error("unlimited RLIMIT_AS should pass")
	}
}

func TestValidateAll_MappingUnavailable(t *testing.T) {
	v := NewValidatorWithMapper(&countingMapper{pageSize: 4096, mapErr: syscall.EPERM})
	v.ValidateAll(4096)

	if !v.HasErrors() {
		t.Fatal("expected errors when mmap fails")
	}
	if resultNamed(t, v, "mmap").Passed {
		t.Error("mmap check should fail")
	}
	if resultNamed(t, v, "guard_pages").Passed {
		t.Error("guard_pages check should fail")
	}
	if !resultNamed(t, v, "guard_trap").Warning {
		t.Error("guard_trap should be skipped with a warning")
	}

	var output bytes.Buffer
	v.PrintResults(&output)
	if !strings.Contains(output.String(), "✗ mmap:") {
		t.Errorf("output missing failed mmap line:\n%s", output.String())
	}
	if !strings.Contains(output.String(), "Validation failed") {
		t.Errorf("output missing failure summary:\n%s", output.String())
	}
}

func TestCapabilities_SkipReason(t *testing.T) {
	caps := &Capabilities{PageSize: 4096}
	if caps.SkipReason() == "" || caps.CanReserveGuarded() {
		t.Error("capabilities without mapping support should report a skip reason")
	}
}
