// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(darwin || linux)

package region

import "errors"

var errUnsupportedPlatform = errors.New("guarded regions require mmap (linux or darwin)")

// PageSize returns 0: the page size cannot be queried on this
// platform, which Reserve reports as ErrPageSize.
func PageSize() int {
	return 0
}

// SystemMapper returns a Mapper whose every call fails.
func SystemMapper() Mapper {
	return unsupportedMapper{}
}

type unsupportedMapper struct{}

func (unsupportedMapper) PageSize() int                    { return 0 }
func (unsupportedMapper) Map(int) ([]byte, error)          { return nil, errUnsupportedPlatform }
func (unsupportedMapper) Protect([]byte, Protection) error { return errUnsupportedPlatform }
func (unsupportedMapper) Unmap([]byte) error               { return errUnsupportedPlatform }
