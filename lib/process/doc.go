// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for the memsandbox binaries.
// Fatal is the one place a binary writes to stderr without the
// structured logger, for errors that occur before it exists.
package process
