// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package space

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bureau-foundation/memsandbox/lib/region"
	"github.com/bureau-foundation/memsandbox/lib/service"
)

// RemoteProvider requests spaces from a worker's Host.
type RemoteProvider struct {
	client      *service.ServiceClient
	compression CompressionTag
	logger      *slog.Logger
}

// NewRemoteProvider creates a provider that calls the worker through
// client. Reads ask for compression; a nil logger discards output.
func NewRemoteProvider(client *service.ServiceClient, compression CompressionTag, logger *slog.Logger) *RemoteProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RemoteProvider{
		client:      client,
		compression: compression,
		logger:      logger,
	}
}

// RequestManagedSpace asks the worker for a space.
func (p *RemoteProvider) RequestManagedSpace(ctx context.Context, request Request) (Space, error) {
	return p.Reserve(ctx, request)
}

// Reserve is RequestManagedSpace with the concrete return type.
func (p *RemoteProvider) Reserve(ctx context.Context, request Request) (*Remote, error) {
	if request.Capacity == 0 {
		return nil, fmt.Errorf("requesting space: %w", region.ErrInvalidSize)
	}

	var info Info
	err := p.client.Call(ctx, actionCreate, map[string]any{
		"capacity":    request.Capacity,
		"guard_pages": request.GuardPages,
	}, &info)
	if err != nil {
		return nil, err
	}
	if info.Capacity != request.Capacity {
		return nil, fmt.Errorf("worker granted %d bytes for a %d-byte request", info.Capacity, request.Capacity)
	}

	p.logger.Debug("remote space granted",
		"space_id", info.ID,
		"capacity", info.Capacity,
		"socket", p.client.SocketPath(),
	)
	return &Remote{provider: p, info: info}, nil
}

// ReleaseManagedSpace releases space on the worker. The first
// successful call releases; later calls return nil. A space the
// worker no longer holds, because it reaped the space as idle, counts
// as released.
func (p *RemoteProvider) ReleaseManagedSpace(ctx context.Context, space Space) error {
	remote, ok := space.(*Remote)
	if !ok || remote.provider != p {
		return ErrForeignSpace
	}

	remote.mu.Lock()
	defer remote.mu.Unlock()

	if remote.released {
		return nil
	}
	err := p.client.Call(ctx, actionRelease, map[string]any{"space_id": remote.info.ID}, nil)
	if isUnknownSpace(err) {
		remote.released = true
		p.logger.Debug("remote space already gone from worker", "space_id", remote.info.ID)
		return nil
	}
	if err != nil {
		return err
	}
	remote.released = true
	p.logger.Debug("remote space released", "space_id", remote.info.ID)
	return nil
}

// List returns the spaces the worker currently holds.
func (p *RemoteProvider) List(ctx context.Context) ([]Info, error) {
	var response listResponse
	if err := p.client.Call(ctx, actionList, nil, &response); err != nil {
		return nil, err
	}
	return response.Spaces, nil
}

// Remote is a space held by a worker process.
type Remote struct {
	provider *RemoteProvider
	info     Info

	mu       sync.Mutex
	released bool
}

func (r *Remote) ID() string         { return r.info.ID }
func (r *Remote) UsableSize() uint64 { return r.info.Capacity }
func (r *Remote) GuardPages() bool   { return r.info.GuardPages }

// Info returns the description the worker returned on creation.
func (r *Remote) Info() Info { return r.info }

func (r *Remote) check(offset, length uint64) error {
	r.mu.Lock()
	released := r.released
	r.mu.Unlock()
	if released {
		return ErrReleased
	}
	if !checkRange(offset, length, r.info.Capacity) {
		return fmt.Errorf("%w: [%d, +%d) in %d bytes", ErrOutOfRange, offset, length, r.info.Capacity)
	}
	return nil
}

// ReadAt fills p from the space starting at offset, in MaxTransfer
// chunks.
func (r *Remote) ReadAt(ctx context.Context, p []byte, offset uint64) error {
	if err := r.check(offset, uint64(len(p))); err != nil {
		return err
	}
	for done := 0; done < len(p); {
		length := min(len(p)-done, MaxTransfer)

		var response readResponse
		err := r.provider.client.Call(ctx, actionRead, map[string]any{
			"space_id":    r.info.ID,
			"offset":      offset + uint64(done),
			"length":      length,
			"compression": r.provider.compression.String(),
		}, &response)
		if err != nil {
			return err
		}
		tag, err := ParseCompressionTag(response.Compression)
		if err != nil {
			return err
		}
		if response.Size != length {
			return fmt.Errorf("read-space returned %d bytes, asked for %d", response.Size, length)
		}
		data, err := decompressPayload(response.Payload, tag, response.Size)
		if err != nil {
			return err
		}
		copy(p[done:], data)
		done += length
	}
	return nil
}

// WriteAt copies p into the space starting at offset, in MaxTransfer
// chunks.
func (r *Remote) WriteAt(ctx context.Context, p []byte, offset uint64) error {
	if err := r.check(offset, uint64(len(p))); err != nil {
		return err
	}
	for done := 0; done < len(p); {
		length := min(len(p)-done, MaxTransfer)
		err := r.provider.client.Call(ctx, actionWrite, map[string]any{
			"space_id": r.info.ID,
			"offset":   offset + uint64(done),
			"data":     p[done : done+length],
		}, nil)
		if err != nil {
			return err
		}
		done += length
	}
	return nil
}

// Digest asks the worker to hash the space's usable memory.
func (r *Remote) Digest(ctx context.Context) (region.Digest, error) {
	if err := r.check(0, 0); err != nil {
		return region.Digest{}, err
	}
	var response digestResponse
	if err := r.provider.client.Call(ctx, actionDigest, map[string]any{"space_id": r.info.ID}, &response); err != nil {
		return region.Digest{}, err
	}
	var digest region.Digest
	if len(response.Digest) != len(digest) {
		return region.Digest{}, fmt.Errorf("digest-space returned %d bytes, want %d", len(response.Digest), len(digest))
	}
	copy(digest[:], response.Digest)
	return digest, nil
}

// isUnknownSpace reports whether err is the worker's ErrUnknownSpace.
// Host errors cross the socket as message text only.
func isUnknownSpace(err error) bool {
	var serviceError *service.ServiceError
	return errors.As(err, &serviceError) &&
		strings.HasPrefix(serviceError.Message, ErrUnknownSpace.Error())
}
