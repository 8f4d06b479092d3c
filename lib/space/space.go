// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package space

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrForeignSpace is returned when a provider is handed a Space it
	// did not issue.
	ErrForeignSpace = errors.New("space: not issued by this provider")

	// ErrReleased is returned by operations on a released space.
	ErrReleased = errors.New("space: released")

	// ErrSpaceLimit is returned when a host already holds MaxSpaces.
	ErrSpaceLimit = errors.New("space: live space limit reached")

	// ErrCapacityLimit is returned for a request above MaxCapacity.
	ErrCapacityLimit = errors.New("space: capacity above limit")

	// ErrUnknownSpace is returned for an ID the host does not hold.
	ErrUnknownSpace = errors.New("space: unknown space")

	// ErrOutOfRange is returned for a transfer outside the usable
	// range.
	ErrOutOfRange = errors.New("space: transfer out of range")
)

// MaxTransfer is the largest payload one read-space or write-space
// request carries. Remote spaces split larger transfers.
const MaxTransfer = 1 << 20

// Space is a granted region of guarded memory.
type Space interface {
	// ID identifies the space to its provider.
	ID() string

	// UsableSize is the capacity requested when the space was granted.
	UsableSize() uint64

	// GuardPages reports whether the usable range is bracketed by
	// inaccessible pages.
	GuardPages() bool
}

// Request describes the space an orchestrator wants.
type Request struct {
	Capacity   uint64
	GuardPages bool
}

// Provider grants and reclaims spaces. Releasing a space twice is a
// no-op; releasing a space from another provider is ErrForeignSpace.
type Provider interface {
	RequestManagedSpace(ctx context.Context, request Request) (Space, error)
	ReleaseManagedSpace(ctx context.Context, space Space) error
}

// Info describes a space held by a host.
type Info struct {
	ID         string    `json:"id"`
	Capacity   uint64    `json:"capacity"`
	GuardPages bool      `json:"guard_pages"`
	MappedSize int       `json:"mapped_size"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsed   time.Time `json:"last_used"`
}

// newSpaceID returns 16 random hex characters.
func newSpaceID() string {
	var raw [8]byte
	rand.Read(raw[:])
	return hex.EncodeToString(raw[:])
}

// checkRange reports whether [offset, offset+length) lies inside a
// space of size usable, without overflowing.
func checkRange(offset, length, usable uint64) bool {
	return offset <= usable && length <= usable-offset
}
