// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"errors"
	"unsafe"
)

// protectCall records one Protect invocation as an offset into the
// mapping it was applied to.
type protectCall struct {
	offset     int
	length     int
	protection Protection
}

// trackingMapper is a heap-backed Mapper that records every call and
// can be told to fail specific ones.
type trackingMapper struct {
	pageSize int

	mapErr error
	// protectFailAt is the 1-based Protect call that fails; 0 never
	// fails.
	protectFailAt int
	protectErr    error

	maps     int
	unmaps   int
	protects []protectCall
	live     []byte
}

func newTrackingMapper(pageSize int) *trackingMapper {
	return &trackingMapper{pageSize: pageSize}
}

func (m *trackingMapper) PageSize() int { return m.pageSize }

func (m *trackingMapper) Map(length int) ([]byte, error) {
	if m.mapErr != nil {
		return nil, m.mapErr
	}
	m.maps++
	m.live = make([]byte, length)
	return m.live, nil
}

func (m *trackingMapper) Protect(pages []byte, protection Protection) error {
	if m.protectFailAt != 0 && len(m.protects)+1 == m.protectFailAt {
		m.protects = append(m.protects, protectCall{offset: -1})
		if m.protectErr != nil {
			return m.protectErr
		}
		return errors.New("injected mprotect failure")
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(m.live)))
	start := uintptr(unsafe.Pointer(unsafe.SliceData(pages)))
	m.protects = append(m.protects, protectCall{
		offset:     int(start - base),
		length:     len(pages),
		protection: protection,
	})
	return nil
}

func (m *trackingMapper) Unmap(mapping []byte) error {
	m.unmaps++
	return nil
}
