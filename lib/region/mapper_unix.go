// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package region

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	pageSizeOnce  sync.Once
	pageSizeValue int
)

// PageSize returns the platform page size, queried once per process.
func PageSize() int {
	pageSizeOnce.Do(func() {
		pageSizeValue = unix.Getpagesize()
	})
	return pageSizeValue
}

// SystemMapper returns the Mapper backed by mmap, mprotect and munmap.
func SystemMapper() Mapper {
	return systemMapper{}
}

type systemMapper struct{}

func (systemMapper) PageSize() int {
	return PageSize()
}

func (systemMapper) Map(length int) ([]byte, error) {
	return unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func (systemMapper) Protect(pages []byte, protection Protection) error {
	var prot int
	switch protection {
	case ProtectNone:
		prot = unix.PROT_NONE
	case ProtectReadWrite:
		prot = unix.PROT_READ | unix.PROT_WRITE
	default:
		return fmt.Errorf("unsupported protection %d", protection)
	}
	return unix.Mprotect(pages, prot)
}

func (systemMapper) Unmap(mapping []byte) error {
	return unix.Munmap(mapping)
}
