// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// memsandbox is the operator CLI for guarded memory sandboxes.
//
// Subcommands:
//
//	validate   check that this host can map guarded regions
//	probe      create a sandbox, allocate in it, and trip its guard page
//	request    exercise a managed space held by memsandbox-worker
//	spaces     list the spaces a worker holds
//	version    print version information
//
// Every subcommand accepts --config; without it the file named by
// MEMSANDBOX_CONFIG is used, and without that the built-in defaults.
package main
