// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the memsandbox
// binaries. Values are injected with:
//
//	go build -ldflags "-X github.com/bureau-foundation/memsandbox/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Unset values read "unknown" and "0.1.0-dev".
package version
