// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package space

import (
	"sync"

	"github.com/bureau-foundation/memsandbox/lib/region"
)

// heapMapper is a region.Mapper backed by Go memory. It counts maps
// and unmaps so tests can check that every space is released once.
type heapMapper struct {
	mu     sync.Mutex
	maps   int
	unmaps int
}

func (m *heapMapper) PageSize() int { return 4096 }

func (m *heapMapper) Map(length int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maps++
	return make([]byte, length), nil
}

func (m *heapMapper) Protect([]byte, region.Protection) error { return nil }

func (m *heapMapper) Unmap([]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmaps++
	return nil
}

func (m *heapMapper) counts() (maps, unmaps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maps, m.unmaps
}
