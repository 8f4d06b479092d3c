// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the single CBOR configuration shared by the worker
// socket protocol and its clients.
//
// Encoding is deterministic: sorted map keys, shortest integers, no
// indefinite-length items. Decoding ignores unknown fields so older
// clients keep working against newer workers.
//
//	data, err := codec.Marshal(request)
//	err = codec.Unmarshal(data, &request)
//
// For sockets, use NewEncoder and NewDecoder on the connection.
//
// Types that only cross the socket carry `cbor` struct tags. Types that
// are also printed as JSON by the CLI carry `json` tags, which the CBOR
// library reads as a fallback. A field never carries both.
package codec
