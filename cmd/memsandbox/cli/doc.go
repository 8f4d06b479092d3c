// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the memsandbox
// operator CLI: a [Command] tree with pflag flag sets, generated help,
// typo suggestions for unknown commands, [ExitError] for commands whose
// non-zero exit is an expected outcome, and [NewCommandLogger].
package cli
