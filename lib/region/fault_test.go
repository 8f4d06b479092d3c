// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package region

import (
	"errors"
	"runtime/debug"
	"testing"
	"unsafe"
)

//go:noinline
func pokeByte(pointer unsafe.Pointer, offset int) {
	*(*byte)(unsafe.Add(pointer, offset)) = 0xAA
}

//go:noinline
func peekByte(pointer unsafe.Pointer, offset int) byte {
	return *(*byte)(unsafe.Add(pointer, offset))
}

func reservePageMultiple(t *testing.T, pages int) *Region {
	t.Helper()
	region, err := Reserve(uint64(pages*PageSize()), true)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	t.Cleanup(func() { region.Release() })
	return region
}

func TestGuard_FrontGuardWrite(t *testing.T) {
	region := reservePageMultiple(t, 1)
	base := region.UsablePointer()

	err := region.Guard(func() { pokeByte(base, -1) })

	var violation *GuardViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected *GuardViolation, got %v", err)
	}
	if !errors.Is(err, ErrGuardViolation) {
		t.Error("expected errors.Is(err, ErrGuardViolation)")
	}
	if violation.Zone != FrontGuard {
		t.Errorf("Zone = %s, want front", violation.Zone)
	}
	if violation.Offset != -1 {
		t.Errorf("Offset = %d, want -1", violation.Offset)
	}
	if violation.Address != uintptr(base)-1 {
		t.Errorf("Address = %#x, want %#x", violation.Address, uintptr(base)-1)
	}
}

func TestGuard_BackGuardWrite(t *testing.T) {
	region := reservePageMultiple(t, 2)
	base := region.UsablePointer()
	size := int(region.UsableSize())

	err := region.Guard(func() { pokeByte(base, size) })

	var violation *GuardViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected *GuardViolation, got %v", err)
	}
	if violation.Zone != BackGuard {
		t.Errorf("Zone = %s, want back", violation.Zone)
	}
	if violation.Offset != int64(size) {
		t.Errorf("Offset = %d, want %d", violation.Offset, size)
	}
}

func TestGuard_GuardPageRead(t *testing.T) {
	region := reservePageMultiple(t, 1)
	base := region.UsablePointer()
	pageSize := region.PageSize()

	err := region.Guard(func() { _ = peekByte(base, -pageSize) })
	if !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("reading the first byte of the front guard: expected guard violation, got %v", err)
	}

	err = region.Guard(func() { _ = peekByte(base, int(region.UsableSize())+pageSize-1) })
	if !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("reading the last byte of the back guard: expected guard violation, got %v", err)
	}
}

func TestGuard_UsableRangeDoesNotFault(t *testing.T) {
	region := reservePageMultiple(t, 2)
	base := region.UsablePointer()
	size := int(region.UsableSize())

	err := region.Guard(func() {
		for offset := 0; offset < size; offset++ {
			pokeByte(base, offset)
			if peekByte(base, offset) != 0xAA {
				panic("usable byte did not hold its value")
			}
		}
	})
	if err != nil {
		t.Fatalf("access inside the usable range returned %v", err)
	}
}

func TestGuard_OtherPanicsPropagate(t *testing.T) {
	region := reservePageMultiple(t, 1)

	defer func() {
		recovered := recover()
		if recovered != "unrelated" {
			t.Errorf("expected the original panic value, got %v", recovered)
		}
	}()
	region.Guard(func() { panic("unrelated") })
	t.Error("Guard returned instead of re-panicking")
}

func TestGuard_RestoresPanicOnFault(t *testing.T) {
	region := reservePageMultiple(t, 1)
	base := region.UsablePointer()

	debug.SetPanicOnFault(false)
	region.Guard(func() { pokeByte(base, -1) })
	if previous := debug.SetPanicOnFault(false); previous {
		t.Error("Guard left SetPanicOnFault enabled")
	}
}

func TestGuard_RegionsAreIndependent(t *testing.T) {
	first := reservePageMultiple(t, 1)
	second := reservePageMultiple(t, 1)
	base := first.UsablePointer()

	// A fault in first's guard page is not second's violation.
	defer func() {
		if recover() == nil {
			t.Error("expected fault in another region's guard page to propagate")
		}
	}()
	second.Guard(func() { pokeByte(base, -1) })
}
