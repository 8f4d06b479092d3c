// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"github.com/bureau-foundation/memsandbox/lib/region"
)

// countingMapper is a heap-backed region.Mapper that counts calls and
// can be told to fail mapping or protection.
type countingMapper struct {
	pageSize   int
	mapErr     error
	protectErr error

	maps     int
	protects int
	unmaps   int
}

func (m *countingMapper) PageSize() int { return m.pageSize }

func (m *countingMapper) Map(length int) ([]byte, error) {
	if m.mapErr != nil {
		return nil, m.mapErr
	}
	m.maps++
	return make([]byte, length), nil
}

func (m *countingMapper) Protect([]byte, region.Protection) error {
	m.protects++
	return m.protectErr
}

func (m *countingMapper) Unmap([]byte) error {
	m.unmaps++
	return nil
}
