// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Memsandbox-worker holds managed spaces on behalf of other processes.
// It serves the space actions (create-space, release-space,
// read-space, write-space, digest-space, list-spaces) on a Unix socket
// until SIGINT or SIGTERM, then releases every space it still holds.
//
// Configuration comes from --config, then MEMSANDBOX_CONFIG, then the
// built-in defaults; --socket, --max-spaces and --max-capacity override
// the loaded values.
package main
