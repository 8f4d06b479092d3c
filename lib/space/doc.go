// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package space is the boundary through which an orchestrator hands
// guarded memory to a sandbox that may live in another process.
//
// A [Provider] grants a [Space] of fixed usable size and takes it back
// exactly once. Two providers implement the contract:
//
//   - [LocalProvider] reserves a region in the calling process and
//     returns [*Local], whose memory is directly addressable.
//   - [RemoteProvider] asks a worker process over its Unix socket and
//     returns [*Remote], whose memory is reached through ReadAt,
//     WriteAt and Digest calls.
//
// [Host] is the worker side: it owns the live regions, enforces
// MaxSpaces and MaxCapacity, bounds-checks every transfer, and
// registers the create-space, release-space, read-space, write-space,
// digest-space and list-spaces actions on a service.SocketServer.
//
// Read payloads are compressed with the [CompressionTag] the client
// asks for, falling back to none when the data does not shrink. Fresh
// spaces are mostly zero pages, which LZ4 reduces to a few bytes.
package space
