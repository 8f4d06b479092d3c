// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/memsandbox/cmd/memsandbox/cli"
	"github.com/bureau-foundation/memsandbox/lib/service"
	"github.com/bureau-foundation/memsandbox/lib/space"
)

func spacesCommand() *cli.Command {
	var (
		output     cli.JSONOutput
		configPath string
		socket     string
	)

	return &cli.Command{
		Name:    "spaces",
		Summary: "List the spaces a worker holds",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("spaces", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			socketFlag(flagSet, &socket)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			loaded, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client := service.NewServiceClient(socketPath(socket, loaded))
			provider := space.NewRemoteProvider(client, space.CompressionNone, cli.NewCommandLogger())
			spaces, err := provider.List(ctx)
			if err != nil {
				return fmt.Errorf("listing spaces: %w", err)
			}
			if done, err := output.EmitJSON(spaces); done {
				return err
			}

			if len(spaces) == 0 {
				fmt.Println("no spaces")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tCAPACITY\tMAPPED\tGUARD\tCREATED\tLAST USED")
			for _, info := range spaces {
				fmt.Fprintf(writer, "%s\t%d\t%d\t%t\t%s\t%s\n",
					info.ID, info.Capacity, info.MappedSize, info.GuardPages,
					info.CreatedAt.Format(time.RFC3339), info.LastUsed.Format(time.RFC3339))
			}
			return writer.Flush()
		},
	}
}
