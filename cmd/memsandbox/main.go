// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/memsandbox/cmd/memsandbox/cli"
	"github.com/bureau-foundation/memsandbox/lib/config"
	"github.com/bureau-foundation/memsandbox/lib/process"
	"github.com/bureau-foundation/memsandbox/lib/version"
)

func main() {
	if err := run(); err != nil {
		// validate prints its own report and returns an ExitError.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	return root().Execute(os.Args[1:])
}

func root() *cli.Command {
	return &cli.Command{
		Name:        "memsandbox",
		Summary:     "Guarded memory sandboxes",
		Description: "memsandbox creates and inspects guarded memory sandboxes and the managed\nspaces held by memsandbox-worker.",
		Output:      os.Stdout,
		Subcommands: []*cli.Command{
			validateCommand(),
			probeCommand(),
			requestCommand(),
			spacesCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(args []string) error {
			fmt.Printf("memsandbox %s\n", version.Full())
			return nil
		},
	}
}

// configFlag registers --config on flagSet.
func configFlag(flagSet *pflag.FlagSet, path *string) {
	flagSet.StringVar(path, "config", "", "configuration file (default $"+config.ConfigEnvVar+")")
}

// loadConfig resolves and validates the configuration.
func loadConfig(path string) (*config.Config, error) {
	loaded, err := config.Resolve(path)
	if err != nil {
		return nil, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}
