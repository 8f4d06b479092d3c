// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds shared test helpers.
//
// [SocketDir] returns a directory under /tmp for Unix sockets, whose
// paths are limited to 108 bytes; t.TempDir() can exceed that.
//
// [RequireReceive] and [RequireClosed] bound channel
// waits with a wall-clock timeout so a broken test fails instead of
// hanging.
//
// [UniqueID] returns process-unique identifiers.
package testutil
