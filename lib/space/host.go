// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package space

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/memsandbox/lib/clock"
	"github.com/bureau-foundation/memsandbox/lib/codec"
	"github.com/bureau-foundation/memsandbox/lib/region"
	"github.com/bureau-foundation/memsandbox/lib/service"
)

// ErrHostClosed is returned by a Host after Close.
var ErrHostClosed = errors.New("space: host closed")

// HostConfig configures a Host.
type HostConfig struct {
	// MaxSpaces caps live spaces. Zero means no limit.
	MaxSpaces int

	// MaxCapacity caps the usable size of one space. Zero means no
	// limit.
	MaxCapacity uint64

	// Compression encodes reads whose request names no encoding.
	Compression CompressionTag

	// Mapper performs the mapping system calls. Nil selects
	// region.SystemMapper.
	Mapper region.Mapper

	// Clock stamps creation and last-use times. Nil selects
	// clock.Real.
	Clock clock.Clock

	Logger *slog.Logger
}

// Host owns the spaces granted to remote clients. All access to a
// space's memory happens under the host's lock, so each region sees
// one caller at a time.
type Host struct {
	config   HostConfig
	clock    clock.Clock
	logger   *slog.Logger
	provider *LocalProvider

	mu     sync.Mutex
	spaces map[string]*hostedSpace
	closed bool
}

type hostedSpace struct {
	local     *Local
	createdAt time.Time
	lastUsed  time.Time
}

func (s *hostedSpace) info() Info {
	return Info{
		ID:         s.local.ID(),
		Capacity:   s.local.UsableSize(),
		GuardPages: s.local.GuardPages(),
		MappedSize: s.local.MappedSize(),
		CreatedAt:  s.createdAt,
		LastUsed:   s.lastUsed,
	}
}

// NewHost creates a Host with no spaces.
func NewHost(config HostConfig) *Host {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	hostClock := config.Clock
	if hostClock == nil {
		hostClock = clock.Real()
	}
	return &Host{
		config:   config,
		clock:    hostClock,
		logger:   logger,
		provider: NewLocalProvider(config.Mapper, logger),
		spaces:   make(map[string]*hostedSpace),
	}
}

// Create reserves a space after checking the host limits.
func (h *Host) Create(ctx context.Context, request Request) (Info, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return Info{}, ErrHostClosed
	}
	if h.config.MaxSpaces > 0 && len(h.spaces) >= h.config.MaxSpaces {
		return Info{}, fmt.Errorf("%w (%d)", ErrSpaceLimit, h.config.MaxSpaces)
	}
	if h.config.MaxCapacity > 0 && request.Capacity > h.config.MaxCapacity {
		return Info{}, fmt.Errorf("%w: %d > %d", ErrCapacityLimit, request.Capacity, h.config.MaxCapacity)
	}

	local, err := h.provider.Reserve(ctx, request)
	if err != nil {
		return Info{}, err
	}

	now := h.clock.Now()
	hosted := &hostedSpace{local: local, createdAt: now, lastUsed: now}
	h.spaces[local.ID()] = hosted

	h.logger.Info("space created",
		"space_id", local.ID(),
		"capacity", request.Capacity,
		"guard_pages", request.GuardPages,
		"live", len(h.spaces),
	)
	return hosted.info(), nil
}

// Release unmaps the space with id.
func (h *Host) Release(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	hosted, err := h.lookupLocked(id)
	if err != nil {
		return err
	}
	return h.releaseLocked(ctx, hosted)
}

func (h *Host) releaseLocked(ctx context.Context, hosted *hostedSpace) error {
	id := hosted.local.ID()
	delete(h.spaces, id)
	if err := h.provider.ReleaseManagedSpace(ctx, hosted.local); err != nil {
		return err
	}
	h.logger.Info("space released", "space_id", id, "live", len(h.spaces))
	return nil
}

// lookupLocked finds id and marks it used.
func (h *Host) lookupLocked(id string) (*hostedSpace, error) {
	if h.closed {
		return nil, ErrHostClosed
	}
	hosted, exists := h.spaces[id]
	if !exists {
		return nil, fmt.Errorf("%w %q", ErrUnknownSpace, id)
	}
	hosted.lastUsed = h.clock.Now()
	return hosted, nil
}

// Read copies length bytes at offset out of the space.
func (h *Host) Read(id string, offset, length uint64) ([]byte, error) {
	if length > MaxTransfer {
		return nil, fmt.Errorf("%w: length %d above %d", ErrOutOfRange, length, MaxTransfer)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hosted, err := h.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	usable := hosted.local.Bytes()
	if !checkRange(offset, length, uint64(len(usable))) {
		return nil, fmt.Errorf("%w: [%d, +%d) in %d bytes", ErrOutOfRange, offset, length, len(usable))
	}
	return slices.Clone(usable[offset : offset+length]), nil
}

// Write copies data into the space at offset.
func (h *Host) Write(id string, offset uint64, data []byte) error {
	if len(data) > MaxTransfer {
		return fmt.Errorf("%w: length %d above %d", ErrOutOfRange, len(data), MaxTransfer)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hosted, err := h.lookupLocked(id)
	if err != nil {
		return err
	}
	usable := hosted.local.Bytes()
	if !checkRange(offset, uint64(len(data)), uint64(len(usable))) {
		return fmt.Errorf("%w: [%d, +%d) in %d bytes", ErrOutOfRange, offset, len(data), len(usable))
	}
	copy(usable[offset:], data)
	return nil
}

// Digest hashes the space's usable memory.
func (h *Host) Digest(id string) (region.Digest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hosted, err := h.lookupLocked(id)
	if err != nil {
		return region.Digest{}, err
	}
	return hosted.local.Digest(), nil
}

// List describes every live space, oldest first.
func (h *Host) List() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()

	infos := make([]Info, 0, len(h.spaces))
	for _, hosted := range h.spaces {
		infos = append(infos, hosted.info())
	}
	slices.SortFunc(infos, func(a, b Info) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return infos
}

// ReapIdle releases spaces unused for at least maxIdle and returns
// their IDs.
func (h *Host) ReapIdle(ctx context.Context, maxIdle time.Duration) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	var reaped []string
	for id, hosted := range h.spaces {
		if now.Sub(hosted.lastUsed) < maxIdle {
			continue
		}
		if err := h.releaseLocked(ctx, hosted); err != nil {
			h.logger.Error("releasing idle space failed", "space_id", id, "error", err)
			continue
		}
		reaped = append(reaped, id)
	}
	slices.Sort(reaped)
	if len(reaped) > 0 {
		h.logger.Info("reaped idle spaces", "count", len(reaped), "max_idle", maxIdle)
	}
	return reaped
}

// RunReaper calls ReapIdle every interval until ctx is cancelled.
func (h *Host) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := h.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.ReapIdle(ctx, maxIdle)
		}
	}
}

// Close releases every space. Later calls on the host return
// ErrHostClosed; Close itself may be called again.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	count := len(h.spaces)
	clear(h.spaces)
	if err := h.provider.Close(); err != nil {
		return fmt.Errorf("closing host: %w", err)
	}
	h.logger.Info("host closed", "released", count)
	return nil
}

// Register installs the space actions on server.
func (h *Host) Register(server *service.SocketServer) {
	server.Handle(actionCreate, h.handleCreate)
	server.Handle(actionRelease, h.handleRelease)
	server.Handle(actionRead, h.handleRead)
	server.Handle(actionWrite, h.handleWrite)
	server.Handle(actionDigest, h.handleDigest)
	server.Handle(actionList, h.handleList)
}

func (h *Host) handleCreate(ctx context.Context, raw []byte) (any, error) {
	var request createRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return h.Create(ctx, Request{Capacity: request.Capacity, GuardPages: request.GuardPages})
}

func (h *Host) handleRelease(ctx context.Context, raw []byte) (any, error) {
	var request spaceRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return nil, h.Release(ctx, request.SpaceID)
}

func (h *Host) handleRead(ctx context.Context, raw []byte) (any, error) {
	var request readRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	tag := h.config.Compression
	if request.Compression != "" {
		parsed, err := ParseCompressionTag(request.Compression)
		if err != nil {
			return nil, err
		}
		tag = parsed
	}

	data, err := h.Read(request.SpaceID, request.Offset, request.Length)
	if err != nil {
		return nil, err
	}
	payload, used, err := compressPayload(data, tag)
	if err != nil {
		return nil, err
	}
	return readResponse{Compression: used.String(), Size: len(data), Payload: payload}, nil
}

func (h *Host) handleWrite(ctx context.Context, raw []byte) (any, error) {
	var request writeRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return nil, h.Write(request.SpaceID, request.Offset, request.Data)
}

func (h *Host) handleDigest(ctx context.Context, raw []byte) (any, error) {
	var request spaceRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	digest, err := h.Digest(request.SpaceID)
	if err != nil {
		return nil, err
	}
	return digestResponse{Digest: digest[:]}, nil
}

func (h *Host) handleList(ctx context.Context, raw []byte) (any, error) {
	return listResponse{Spaces: h.List()}, nil
}
