// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package space

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/memsandbox/lib/region"
)

// Local is a space reserved in the calling process.
type Local struct {
	id       string
	provider *LocalProvider
	region   *region.Region
	released bool
}

func (l *Local) ID() string         { return l.id }
func (l *Local) UsableSize() uint64 { return l.region.UsableSize() }
func (l *Local) GuardPages() bool   { return l.region.GuardPages() }

// MappedSize returns the whole mapping size, guard pages included.
func (l *Local) MappedSize() int { return l.region.MappedSize() }

// Bytes returns the usable memory. Panics after release.
func (l *Local) Bytes() []byte { return l.region.Usable() }

// Digest hashes the usable memory.
func (l *Local) Digest() region.Digest { return l.region.Digest() }

// Guard runs fn and reports a fault in this space's guard pages as a
// *region.GuardViolation.
func (l *Local) Guard(fn func()) error { return l.region.Guard(fn) }

// LocalProvider reserves spaces in the calling process. Safe for
// concurrent use; each Local it returns is not.
type LocalProvider struct {
	mapper region.Mapper
	logger *slog.Logger

	mu   sync.Mutex
	live map[string]*Local
}

// NewLocalProvider creates a provider. A nil mapper selects
// region.SystemMapper and a nil logger discards output.
func NewLocalProvider(mapper region.Mapper, logger *slog.Logger) *LocalProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalProvider{
		mapper: mapper,
		logger: logger,
		live:   make(map[string]*Local),
	}
}

// RequestManagedSpace reserves a region. Region errors are returned
// wrapped, so errors.Is matches the region sentinels.
func (p *LocalProvider) RequestManagedSpace(ctx context.Context, request Request) (Space, error) {
	return p.Reserve(ctx, request)
}

// Reserve is RequestManagedSpace with the concrete return type.
func (p *LocalProvider) Reserve(ctx context.Context, request Request) (*Local, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reserved, err := region.ReserveWith(request.Capacity, region.Options{
		GuardPages: request.GuardPages,
		Mapper:     p.mapper,
	})
	if err != nil {
		return nil, fmt.Errorf("reserving %d-byte space: %w", request.Capacity, err)
	}

	local := &Local{
		id:       newSpaceID(),
		provider: p,
		region:   reserved,
	}

	p.mu.Lock()
	p.live[local.id] = local
	p.mu.Unlock()

	p.logger.Debug("space reserved",
		"space_id", local.id,
		"capacity", request.Capacity,
		"guard_pages", request.GuardPages,
	)
	return local, nil
}

// ReleaseManagedSpace unmaps space. The first call releases; later
// calls return nil.
func (p *LocalProvider) ReleaseManagedSpace(ctx context.Context, space Space) error {
	local, ok := space.(*Local)
	if !ok || local.provider != p {
		return ErrForeignSpace
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releaseLocked(local)
}

func (p *LocalProvider) releaseLocked(local *Local) error {
	if local.released {
		return nil
	}
	local.released = true
	delete(p.live, local.id)

	if err := local.region.Release(); err != nil {
		return fmt.Errorf("releasing space %s: %w", local.id, err)
	}
	p.logger.Debug("space released", "space_id", local.id)
	return nil
}

// Live returns the number of unreleased spaces.
func (p *LocalProvider) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Close releases every live space.
func (p *LocalProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, local := range p.live {
		if err := p.releaseLocked(local); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
