// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package space

// Socket action names.
const (
	actionCreate  = "create-space"
	actionRelease = "release-space"
	actionRead    = "read-space"
	actionWrite   = "write-space"
	actionDigest  = "digest-space"
	actionList    = "list-spaces"
)

type createRequest struct {
	Capacity   uint64 `cbor:"capacity"`
	GuardPages bool   `cbor:"guard_pages"`
}

type spaceRequest struct {
	SpaceID string `cbor:"space_id"`
}

type readRequest struct {
	SpaceID     string `cbor:"space_id"`
	Offset      uint64 `cbor:"offset"`
	Length      uint64 `cbor:"length"`
	Compression string `cbor:"compression,omitempty"`
}

type readResponse struct {
	Compression string `cbor:"compression"`
	Size        int    `cbor:"size"`
	Payload     []byte `cbor:"payload"`
}

type writeRequest struct {
	SpaceID string `cbor:"space_id"`
	Offset  uint64 `cbor:"offset"`
	Data    []byte `cbor:"data"`
}

type digestResponse struct {
	Digest []byte `cbor:"digest"`
}

type listResponse struct {
	Spaces []Info `cbor:"spaces"`
}
