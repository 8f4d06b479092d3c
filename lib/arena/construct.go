// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"
	"unsafe"
)

var (
	ErrConstructFailed = errors.New("arena: element construction failed")
	ErrPointerType     = errors.New("arena: type contains Go pointers")
)

// Lifecycle is the in-place constructor and destructor applied to
// every element of a [Construct] call. Init receives a pointer to a
// zeroed element and carries its constructor arguments in its closure,
// so every element is built from the same arguments.
type Lifecycle[T any] struct {
	// Init initializes one element. Nil leaves the zero value.
	Init func(element *T) error

	// Teardown undoes a successful Init. It runs only when a later
	// element in the same call fails. Nil skips teardown.
	Teardown func(element *T)
}

// ConstructError reports the element whose Init failed.
type ConstructError struct {
	Type  string
	Index uint64
	Count uint64
	Err   error
}

func (e *ConstructError) Error() string {
	return fmt.Sprintf("arena: constructing %s element %d of %d: %v", e.Type, e.Index, e.Count, e.Err)
}

func (e *ConstructError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConstructFailed.
func (e *ConstructError) Is(target error) bool {
	return target == ErrConstructFailed
}

// Span is a typed view over an allocation of constructed elements.
// It is valid until the arena's memory is released.
type Span[T any] struct {
	allocation Allocation
	items      []T
}

// Items returns the elements. Length and capacity are the element
// count.
func (s *Span[T]) Items() []T {
	return s.items
}

// Len returns the element count.
func (s *Span[T]) Len() int {
	return len(s.items)
}

// At returns a pointer to element index.
func (s *Span[T]) At(index int) *T {
	return &s.items[index]
}

// Allocation returns the record backing the span.
func (s *Span[T]) Allocation() Allocation {
	return s.allocation
}

// Construct allocates count elements of T and initializes each with
// lifecycle.Init. If Init fails for element i, elements i-1 down to 0
// are torn down, the whole span is zeroed, and a [*ConstructError] is
// returned. The span stays allocated: the cursor is where it would be
// had construction succeeded.
func Construct[T any](a *Arena, count uint64, lifecycle Lifecycle[T]) (*Span[T], error) {
	elementType := reflect.TypeFor[T]()
	if err := checkPointerFree(elementType); err != nil {
		return nil, err
	}

	// A zero-size T passes the byte-count check for any count, but a
	// slice cannot index more than MaxInt elements.
	if count > math.MaxInt {
		return nil, fmt.Errorf("%w: %d elements of %s", ErrSizeOverflow, count, elementType)
	}

	var zero T
	allocation, err := a.AllocateAligned(
		uint64(unsafe.Sizeof(zero)),
		count,
		uint64(unsafe.Alignof(zero)),
		elementType.String(),
	)
	if err != nil {
		return nil, err
	}

	var items []T
	if count > 0 {
		items = unsafe.Slice((*T)(a.pointer(allocation.Offset)), count)
	}
	clear(items)

	if lifecycle.Init != nil {
		for index := range items {
			if err := lifecycle.Init(&items[index]); err != nil {
				if lifecycle.Teardown != nil {
					for built := index - 1; built >= 0; built-- {
						lifecycle.Teardown(&items[built])
					}
				}
				clear(items)
				return nil, &ConstructError{
					Type:  elementType.String(),
					Index: uint64(index),
					Count: count,
					Err:   err,
				}
			}
		}
	}

	return &Span[T]{allocation: allocation, items: items}, nil
}

// Fill allocates count elements of T, each a copy of value.
func Fill[T any](a *Arena, count uint64, value T) (*Span[T], error) {
	return Construct(a, count, Lifecycle[T]{
		Init: func(element *T) error {
			*element = value
			return nil
		},
	})
}

// pointerFreeCache maps reflect.Type to the error (or nil) from
// checking it.
var pointerFreeCache sync.Map

// checkPointerFree returns ErrPointerType if values of typ hold
// anything the garbage collector must trace.
func checkPointerFree(typ reflect.Type) error {
	if cached, ok := pointerFreeCache.Load(typ); ok {
		if cached == nil {
			return nil
		}
		return cached.(error)
	}

	var result error
	if path := pointerPath(typ, typ.String()); path != "" {
		result = fmt.Errorf("%w: %s", ErrPointerType, path)
	}
	pointerFreeCache.Store(typ, result)
	return result
}

// pointerPath returns a description of the first pointer-carrying
// component of typ, or "" if there is none.
func pointerPath(typ reflect.Type, path string) string {
	switch typ.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Chan, reflect.Func, reflect.Interface:
		return fmt.Sprintf("%s is a %s", path, typ.Kind())
	case reflect.Array:
		if typ.Len() == 0 {
			return ""
		}
		return pointerPath(typ.Elem(), path+"[]")
	case reflect.Struct:
		for index := range typ.NumField() {
			field := typ.Field(index)
			if found := pointerPath(field.Type, path+"."+field.Name); found != "" {
				return found
			}
		}
	}
	return ""
}
