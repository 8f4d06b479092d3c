// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/memsandbox/cmd/memsandbox/cli"
	"github.com/bureau-foundation/memsandbox/lib/config"
	"github.com/bureau-foundation/memsandbox/lib/region"
	"github.com/bureau-foundation/memsandbox/lib/service"
	"github.com/bureau-foundation/memsandbox/lib/space"
)

type requestParams struct {
	cli.JSONOutput
	ConfigPath  string
	SocketPath  string
	Capacity    uint64
	NoGuard     bool
	Compression string
	Timeout     time.Duration
}

// requestResult is the --json output of request.
type requestResult struct {
	Space    space.Info `json:"space"`
	Written  uint64     `json:"written"`
	Verified bool       `json:"verified"`
	Digest   string     `json:"digest"`
	Released bool       `json:"released"`
}

func requestCommand() *cli.Command {
	var params requestParams

	return &cli.Command{
		Name:    "request",
		Summary: "Exercise a managed space held by memsandbox-worker",
		Description: `Request a managed space from a running worker, fill it with a pattern,
read it back, compare the worker's digest with the local one, and
release it.`,
		Examples: []cli.Example{
			{Command: "memsandbox request --capacity 4194304"},
			{Description: "Use a specific worker and zstd transfers", Command: "memsandbox request --socket /run/memsandbox/worker.sock --compression zstd"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("request", pflag.ContinueOnError)
			configFlag(flagSet, &params.ConfigPath)
			socketFlag(flagSet, &params.SocketPath)
			flagSet.Uint64Var(&params.Capacity, "capacity", 64<<10, "usable bytes to request")
			flagSet.BoolVar(&params.NoGuard, "no-guard", false, "request a space without guard pages")
			flagSet.StringVar(&params.Compression, "compression", "", "read transfer encoding: none, lz4 or zstd (default worker.compression)")
			flagSet.DurationVar(&params.Timeout, "timeout", time.Minute, "overall deadline")
			params.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			loaded, err := loadConfig(params.ConfigPath)
			if err != nil {
				return err
			}
			compressionName := params.Compression
			if compressionName == "" {
				compressionName = loaded.Worker.Compression
			}
			compression, err := space.ParseCompressionTag(compressionName)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client := service.NewServiceClient(socketPath(params.SocketPath, loaded))
			provider := space.NewRemoteProvider(client, compression, cli.NewCommandLogger())
			result, err := exerciseRemote(ctx, provider, space.Request{
				Capacity:   params.Capacity,
				GuardPages: !params.NoGuard,
			})
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			printRequest(os.Stdout, result)
			return nil
		},
	}
}

// exerciseRemote runs the create, write, read, digest and release
// sequence against one remote space. The space is released even when
// a step fails.
func exerciseRemote(ctx context.Context, provider *space.RemoteProvider, request space.Request) (result requestResult, err error) {
	remote, err := provider.Reserve(ctx, request)
	if err != nil {
		return requestResult{}, fmt.Errorf("requesting space: %w", err)
	}
	defer func() {
		if releaseErr := provider.ReleaseManagedSpace(ctx, remote); releaseErr != nil {
			if err == nil {
				err = fmt.Errorf("releasing space %s: %w", remote.ID(), releaseErr)
			}
			return
		}
		result.Released = true
	}()

	result.Space = remote.Info()
	pattern := make([]byte, remote.UsableSize())
	for index := range pattern {
		pattern[index] = byte(index*7 + index>>8)
	}
	if err := remote.WriteAt(ctx, pattern, 0); err != nil {
		return result, fmt.Errorf("writing space %s: %w", remote.ID(), err)
	}
	result.Written = uint64(len(pattern))

	readBack := make([]byte, len(pattern))
	if err := remote.ReadAt(ctx, readBack, 0); err != nil {
		return result, fmt.Errorf("reading space %s: %w", remote.ID(), err)
	}

	digest, err := remote.Digest(ctx)
	if err != nil {
		return result, fmt.Errorf("digesting space %s: %w", remote.ID(), err)
	}
	result.Digest = digest.String()
	result.Verified = bytes.Equal(readBack, pattern) && digest == region.DigestBytes(pattern)
	if !result.Verified {
		return result, fmt.Errorf("space %s: read-back or digest mismatch", remote.ID())
	}
	return result, nil
}

func printRequest(w io.Writer, result requestResult) {
	fmt.Fprintf(w, "space:    %s\n", result.Space.ID)
	fmt.Fprintf(w, "capacity: %d bytes (mapped %d, guard pages %t)\n",
		result.Space.Capacity, result.Space.MappedSize, result.Space.GuardPages)
	fmt.Fprintf(w, "written:  %d bytes\n", result.Written)
	fmt.Fprintf(w, "verified: %t\n", result.Verified)
	fmt.Fprintf(w, "digest:   %s\n", result.Digest)
	fmt.Fprintf(w, "released: %t\n", result.Released)
}

// socketFlag registers --socket on flagSet.
func socketFlag(flagSet *pflag.FlagSet, path *string) {
	flagSet.StringVar(path, "socket", "", "worker socket (default worker.socket_path)")
}

func socketPath(flagValue string, loaded *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	return loaded.Worker.SocketPath
}
