// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/memsandbox/lib/arena"
	"github.com/bureau-foundation/memsandbox/lib/region"
)

// ErrClosed is returned by every operation on a closed Sandbox.
var ErrClosed = errors.New("sandbox: closed")

// Sandbox owns one guarded region and the arena that allocates from it.
type Sandbox struct {
	_ noCopy

	// self detects by-value copies; see check.
	self *Sandbox

	region *region.Region
	arena  *arena.Arena
	logger *slog.Logger
	closed bool
}

// Metrics is a snapshot of a sandbox's mapping and arena usage.
type Metrics struct {
	Arena      arena.Metrics
	UsableSize uint64
	MappedSize int
	PageSize   int
	GuardPages bool
}

// New creates a Sandbox with capacity usable bytes and guard pages.
func New(capacity uint64) (*Sandbox, error) {
	return NewWithConfig(Config{Capacity: capacity})
}

// NewWithConfig creates a Sandbox. Region construction errors are
// returned unchanged, so errors.Is matches region.ErrAllocationFailure,
// region.ErrProtectionFailure and the other region sentinels.
func NewWithConfig(config Config) (*Sandbox, error) {
	logger := config.logger()

	reserved, err := region.ReserveWith(config.Capacity, config.regionOptions())
	if err != nil {
		logger.Debug("sandbox reservation failed",
			"capacity", config.Capacity,
			"error", err,
		)
		return nil, err
	}

	sandbox := &Sandbox{
		region: reserved,
		arena:  arena.New(reserved.Usable()),
		logger: logger,
	}
	sandbox.self = sandbox

	logger.Debug("sandbox created",
		"capacity", config.Capacity,
		"mapped_size", reserved.MappedSize(),
		"guard_pages", reserved.GuardPages(),
	)
	return sandbox, nil
}

// check panics on a by-value copy and returns ErrClosed after Close.
func (s *Sandbox) check() error {
	if s.self != s {
		panic("sandbox: Sandbox copied by value; use the *Sandbox returned by New")
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

// AllocateRaw reserves elementSize*count bytes from the arena with no
// alignment padding. See arena.Arena.Allocate.
func (s *Sandbox) AllocateRaw(elementSize, count uint64) (arena.Allocation, error) {
	if err := s.check(); err != nil {
		return arena.Allocation{}, err
	}
	return s.arena.Allocate(elementSize, count)
}

// Bytes returns the memory of an allocation made by this sandbox.
// Panics after Close: the memory is no longer mapped.
func (s *Sandbox) Bytes(allocation arena.Allocation) []byte {
	if err := s.check(); err != nil {
		panic("sandbox: Bytes on closed sandbox")
	}
	return s.arena.Bytes(allocation)
}

// Construct allocates count values of T in the sandbox and initializes
// each with lifecycle. See arena.Construct for the failure contract.
func Construct[T any](s *Sandbox, count uint64, lifecycle arena.Lifecycle[T]) (*arena.Span[T], error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	span, err := arena.Construct(s.arena, count, lifecycle)
	if err != nil && errors.Is(err, arena.ErrConstructFailed) {
		s.logger.Debug("sandbox construction rolled back",
			"count", count,
			"error", err,
		)
	}
	return span, err
}

// Fill allocates count copies of value in the sandbox.
func Fill[T any](s *Sandbox, count uint64, value T) (*arena.Span[T], error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return arena.Fill(s.arena, count, value)
}

// Guard runs fn and converts faults in this sandbox's guard pages into
// a *region.GuardViolation. See region.Region.Guard.
func (s *Sandbox) Guard(fn func()) error {
	if err := s.check(); err != nil {
		return err
	}
	err := s.region.Guard(fn)
	var violation *region.GuardViolation
	if errors.As(err, &violation) {
		s.logger.Debug("sandbox guard violation",
			"zone", violation.Zone.String(),
			"offset", violation.Offset,
		)
	}
	return err
}

// Digest hashes the sandbox's usable range.
func (s *Sandbox) Digest() (region.Digest, error) {
	if err := s.check(); err != nil {
		return region.Digest{}, err
	}
	return s.region.Digest(), nil
}

// UsableSize returns the capacity the sandbox was created with, or 0
// after Close.
func (s *Sandbox) UsableSize() uint64 {
	if err := s.check(); err != nil {
		return 0
	}
	return s.region.UsableSize()
}

// Records returns every allocation made so far, in order.
func (s *Sandbox) Records() []arena.Allocation {
	if err := s.check(); err != nil {
		return nil
	}
	return s.arena.Records()
}

// Metrics returns a snapshot of the sandbox's usage. A closed sandbox
// reports zero values.
func (s *Sandbox) Metrics() Metrics {
	if err := s.check(); err != nil {
		return Metrics{}
	}
	return Metrics{
		Arena:      s.arena.Metrics(),
		UsableSize: s.region.UsableSize(),
		MappedSize: s.region.MappedSize(),
		PageSize:   s.region.PageSize(),
		GuardPages: s.region.GuardPages(),
	}
}

// Close releases the region and every allocation in it. Only the
// first call unmaps; later calls return nil.
func (s *Sandbox) Close() error {
	if err := s.check(); err != nil {
		return nil
	}
	s.closed = true
	s.arena.Detach()

	if err := s.region.Release(); err != nil {
		return fmt.Errorf("sandbox: %w", err)
	}
	s.logger.Debug("sandbox closed")
	return nil
}

// noCopy makes go vet's copylocks check report copies of Sandbox.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
