// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/memsandbox/cmd/memsandbox/cli"
	"github.com/bureau-foundation/memsandbox/sandbox"
)

func validateCommand() *cli.Command {
	var configPath string
	var capacity uint64

	return &cli.Command{
		Name:    "validate",
		Summary: "Check that this host can map guarded regions",
		Description: `Probe the page size, anonymous mapping, guard-page protection and fault
trapping, and the map-count and address-space limits. Exits 1 if any
check fails; warnings do not affect the exit code.`,
		Examples: []cli.Example{
			{Description: "Check against the configured default capacity", Command: "memsandbox validate"},
			{Description: "Check that a 1 GiB sandbox fits the address-space limit", Command: "memsandbox validate --capacity 1073741824"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("validate", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			flagSet.Uint64Var(&capacity, "capacity", 0, "sandbox capacity to check (default sandbox.default_capacity)")
			return flagSet
		},
		Run: func(args []string) error {
			loaded, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if capacity == 0 {
				capacity = loaded.Sandbox.DefaultCapacity
			}

			validator := sandbox.NewValidator()
			validator.ValidateAll(capacity)
			validator.PrintResults(os.Stdout)
			if validator.HasErrors() {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
