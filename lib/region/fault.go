// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrGuardViolation matches every [*GuardViolation].
var ErrGuardViolation = errors.New("region: guard page violation")

// GuardZone identifies which guard page was touched.
type GuardZone int

const (
	FrontGuard GuardZone = iota + 1
	BackGuard
)

func (z GuardZone) String() string {
	switch z {
	case FrontGuard:
		return "front"
	case BackGuard:
		return "back"
	default:
		return fmt.Sprintf("unknown(%d)", int(z))
	}
}

// GuardViolation is a trapped access to one of a Region's guard pages.
type GuardViolation struct {
	// Address is the faulting address reported by the kernel.
	Address uintptr

	// Zone is the guard page that contains Address.
	Zone GuardZone

	// Offset is Address relative to the first usable byte: negative
	// for the front guard, at least the usable size for the back
	// guard.
	Offset int64
}

func (v *GuardViolation) Error() string {
	return fmt.Sprintf("region: guard page violation at %#x (%s guard, usable offset %d)",
		v.Address, v.Zone, v.Offset)
}

// Is reports whether target is ErrGuardViolation.
func (v *GuardViolation) Is(target error) bool {
	return target == ErrGuardViolation
}

// faultAddresser is implemented by the runtime.Error raised for a
// memory fault while SetPanicOnFault is enabled.
type faultAddresser interface {
	Addr() uintptr
}

// Guard runs fn with fault trapping enabled on the calling goroutine.
// A fault inside one of this Region's guard pages is returned as a
// [*GuardViolation]; any other fault or panic propagates unchanged.
//
// fn must perform its memory accesses on the calling goroutine. The
// previous SetPanicOnFault setting is restored before Guard returns.
func (r *Region) Guard(fn func()) (err error) {
	r.check()

	previous := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(previous)
		recovered := recover()
		if recovered == nil {
			return
		}
		if fault, ok := recovered.(faultAddresser); ok {
			if violation := r.classifyFault(fault.Addr()); violation != nil {
				err = violation
				return
			}
		}
		panic(recovered)
	}()

	fn()
	return nil
}

// classifyFault returns a GuardViolation if address lies inside one of
// the Region's guard pages, nil otherwise.
func (r *Region) classifyFault(address uintptr) *GuardViolation {
	if !r.guarded {
		return nil
	}
	page := uintptr(r.pageSize)
	end := r.base + uintptr(len(r.mapping))
	usableStart := r.base + page

	switch {
	case address >= r.base && address < usableStart:
		return &GuardViolation{
			Address: address,
			Zone:    FrontGuard,
			Offset:  -int64(usableStart - address),
		}
	case address >= end-page && address < end:
		return &GuardViolation{
			Address: address,
			Zone:    BackGuard,
			Offset:  int64(address - usableStart),
		}
	}
	return nil
}
