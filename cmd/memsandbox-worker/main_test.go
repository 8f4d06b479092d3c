// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/memsandbox/lib/config"
)

func TestParseFlags(t *testing.T) {
	flags, err := parseFlags([]string{
		"--config", "/etc/memsandbox.yaml",
		"--socket", "/run/memsandbox/worker.sock",
		"--max-spaces", "4",
		"--max-capacity", "1048576",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if flags.configPath != "/etc/memsandbox.yaml" || flags.socketPath != "/run/memsandbox/worker.sock" {
		t.Errorf("paths = %q, %q", flags.configPath, flags.socketPath)
	}
	if flags.maxSpaces != 4 || flags.maxCapacity != 1<<20 {
		t.Errorf("limits = %d, %d", flags.maxSpaces, flags.maxCapacity)
	}

	if _, err := parseFlags([]string{"extra"}); err == nil {
		t.Error("expected error for a positional argument")
	}
	if _, err := parseFlags([]string{"--max-spaces", "many"}); err == nil {
		t.Error("expected error for a malformed --max-spaces")
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memsandbox.yaml")
	content := "worker:\n  socket_path: /run/from-file.sock\n  max_spaces: 8\n  compression: zstd\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := loadConfig(workerFlags{configPath: path, maxCapacity: 4096})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if loaded.Worker.SocketPath != "/run/from-file.sock" || loaded.Worker.MaxSpaces != 8 {
		t.Errorf("file values lost: %+v", loaded.Worker)
	}
	if loaded.Worker.MaxCapacity != 4096 {
		t.Errorf("max_capacity = %d, want the flag value", loaded.Worker.MaxCapacity)
	}
	if loaded.Worker.Compression != "zstd" {
		t.Errorf("compression = %q", loaded.Worker.Compression)
	}

	loaded, err = loadConfig(workerFlags{configPath: path, socketPath: "/run/flag.sock", maxSpaces: 2})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if loaded.Worker.SocketPath != "/run/flag.sock" || loaded.Worker.MaxSpaces != 2 {
		t.Errorf("flag overrides not applied: %+v", loaded.Worker)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv(config.ConfigEnvVar, "")
	_, err := loadConfig(workerFlags{maxSpaces: -1})
	if err == nil || !strings.Contains(err.Error(), "max_spaces") {
		t.Errorf("error = %v, want a max_spaces validation error", err)
	}
}
