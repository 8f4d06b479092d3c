// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/memsandbox/lib/config"
	"github.com/bureau-foundation/memsandbox/lib/process"
	"github.com/bureau-foundation/memsandbox/lib/service"
	"github.com/bureau-foundation/memsandbox/lib/space"
	"github.com/bureau-foundation/memsandbox/lib/version"
)

// minimumReapInterval bounds how often the idle reaper scans.
const minimumReapInterval = time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type workerFlags struct {
	configPath  string
	socketPath  string
	maxSpaces   int
	maxCapacity uint64
	showVersion bool
}

func parseFlags(args []string) (workerFlags, error) {
	var flags workerFlags
	flagSet := pflag.NewFlagSet("memsandbox-worker", pflag.ContinueOnError)
	flagSet.StringVar(&flags.configPath, "config", "", "configuration file (default $"+config.ConfigEnvVar+")")
	flagSet.StringVar(&flags.socketPath, "socket", "", "listen socket (default worker.socket_path)")
	flagSet.IntVar(&flags.maxSpaces, "max-spaces", 0, "maximum live spaces (default worker.max_spaces)")
	flagSet.Uint64Var(&flags.maxCapacity, "max-capacity", 0, "maximum usable bytes per space (default worker.max_capacity)")
	flagSet.BoolVar(&flags.showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return workerFlags{}, err
	}
	if flagSet.NArg() > 0 {
		return workerFlags{}, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	return flags, nil
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig(flags workerFlags) (*config.Config, error) {
	loaded, err := config.Resolve(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.socketPath != "" {
		loaded.Worker.SocketPath = flags.socketPath
	}
	if flags.maxSpaces != 0 {
		loaded.Worker.MaxSpaces = flags.maxSpaces
	}
	if flags.maxCapacity != 0 {
		loaded.Worker.MaxCapacity = flags.maxCapacity
	}
	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}

func run() error {
	flags, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if flags.showVersion {
		fmt.Printf("memsandbox-worker %s\n", version.Info())
		return nil
	}

	loaded, err := loadConfig(flags)
	if err != nil {
		return err
	}
	compression, err := space.ParseCompressionTag(loaded.Worker.Compression)
	if err != nil {
		return err
	}
	idleTimeout, err := loaded.Worker.IdleTimeoutDuration()
	if err != nil {
		return err
	}
	if err := loaded.EnsureSocketDir(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if os.Getenv("MEMSANDBOX_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	host := space.NewHost(space.HostConfig{
		MaxSpaces:   loaded.Worker.MaxSpaces,
		MaxCapacity: loaded.Worker.MaxCapacity,
		Compression: compression,
		Logger:      logger,
	})
	defer func() {
		if err := host.Close(); err != nil {
			logger.Error("releasing spaces", "error", err)
		}
	}()

	server := service.NewSocketServer(loaded.Worker.SocketPath, logger)
	host.Register(server)

	if idleTimeout > 0 {
		go host.RunReaper(ctx, max(idleTimeout/4, minimumReapInterval), idleTimeout)
	}

	logger.Info("memsandbox worker starting",
		"version", version.Info(),
		"environment", loaded.Environment,
		"socket", loaded.Worker.SocketPath,
		"max_spaces", loaded.Worker.MaxSpaces,
		"max_capacity", loaded.Worker.MaxCapacity,
		"compression", compression.String(),
		"idle_timeout", idleTimeout,
		"actions", server.Actions(),
	)

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("serving %s: %w", loaded.Worker.SocketPath, err)
	}
	logger.Info("memsandbox worker shutting down")
	return nil
}
