// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for the memsandbox binaries.
//
// The file comes from MEMSANDBOX_CONFIG ([Load]) or a --config flag
// ([LoadFile]); there is no search path. YAML is the primary format;
// .json and .jsonc files are accepted with comments and trailing
// commas.
//
// A file may carry development, staging and production sections that
// override base values when [Config].Environment matches. Production
// without a section still forces guard pages and a tighter space
// limit.
//
// After loading, ${VAR} and ${VAR:-default} in worker.socket_path are
// expanded. No other environment variable changes a config value.
package config
