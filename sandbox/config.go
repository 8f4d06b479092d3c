// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"log/slog"

	"github.com/bureau-foundation/memsandbox/lib/region"
)

// Config holds configuration for creating a new Sandbox.
type Config struct {
	// Capacity is the usable size in bytes. The mapping is rounded
	// up to whole pages.
	Capacity uint64

	// DisableGuardPages maps the region without guard pages. Guard
	// pages are on by default.
	DisableGuardPages bool

	// Mapper performs the mapping system calls. Nil selects
	// region.SystemMapper.
	Mapper region.Mapper

	// Logger for sandbox lifecycle events. Nil discards them.
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c Config) regionOptions() region.Options {
	return region.Options{
		GuardPages: !c.DisableGuardPages,
		Mapper:     c.Mapper,
	}
}
