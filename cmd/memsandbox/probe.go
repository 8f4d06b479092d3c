// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/memsandbox/cmd/memsandbox/cli"
	"github.com/bureau-foundation/memsandbox/lib/arena"
	"github.com/bureau-foundation/memsandbox/lib/region"
	"github.com/bureau-foundation/memsandbox/sandbox"
)

type probeParams struct {
	cli.JSONOutput
	ConfigPath string
	Capacity   uint64
	NoGuard    bool
}

// probeRecord is the element type probe constructs.
type probeRecord struct {
	Sequence uint64
	Checksum uint32
	Flags    uint16
}

// probeResult is the --json output of probe.
type probeResult struct {
	Capacity    uint64            `json:"capacity"`
	MappedSize  int               `json:"mapped_size"`
	PageSize    int               `json:"page_size"`
	GuardPages  bool              `json:"guard_pages"`
	Allocations []probeAllocation `json:"allocations"`
	SizeInUse   uint64            `json:"size_in_use"`
	Utilization float64           `json:"utilization"`
	GuardTrap   string            `json:"guard_trap"`
	Digest      string            `json:"digest"`
}

type probeAllocation struct {
	Offset      uint64 `json:"offset"`
	ElementSize uint64 `json:"element_size"`
	Count       uint64 `json:"count"`
	Tag         string `json:"tag"`
}

func probeCommand() *cli.Command {
	var params probeParams

	return &cli.Command{
		Name:    "probe",
		Summary: "Create a sandbox, allocate in it, and trip its guard page",
		Description: `Create a sandbox, make one raw allocation and one typed construction,
then write one byte into the back guard page under Guard and report
the trapped violation along with the sandbox metrics.`,
		Examples: []cli.Example{
			{Command: "memsandbox probe --capacity 65536"},
			{Description: "Machine-readable output", Command: "memsandbox probe --json"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("probe", pflag.ContinueOnError)
			configFlag(flagSet, &params.ConfigPath)
			flagSet.Uint64Var(&params.Capacity, "capacity", 0, "usable bytes (default sandbox.default_capacity)")
			flagSet.BoolVar(&params.NoGuard, "no-guard", false, "map without guard pages")
			params.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			loaded, err := loadConfig(params.ConfigPath)
			if err != nil {
				return err
			}
			capacity := params.Capacity
			if capacity == 0 {
				capacity = loaded.Sandbox.DefaultCapacity
			}
			result, err := probe(sandbox.Config{
				Capacity:          capacity,
				DisableGuardPages: params.NoGuard || !loaded.Sandbox.GuardPages,
				Logger:            cli.NewCommandLogger(),
			})
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			printProbe(os.Stdout, result)
			return nil
		},
	}
}

// probe runs the allocation and guard sequence on a fresh sandbox.
func probe(config sandbox.Config) (probeResult, error) {
	box, err := sandbox.NewWithConfig(config)
	if err != nil {
		return probeResult{}, fmt.Errorf("creating sandbox: %w", err)
	}
	defer box.Close()

	rawCount := min(config.Capacity/2, 64)
	raw, err := box.AllocateRaw(1, rawCount)
	if err != nil {
		return probeResult{}, fmt.Errorf("raw allocation: %w", err)
	}
	rawBytes := box.Bytes(raw)
	for index := range rawBytes {
		rawBytes[index] = byte(index)
	}

	var sequence uint64
	_, err = sandbox.Construct(box, 4, arena.Lifecycle[probeRecord]{
		Init: func(record *probeRecord) error {
			sequence++
			record.Sequence = sequence
			record.Checksum = uint32(sequence) * 0x9e3779b1
			return nil
		},
	})
	if err != nil && !errors.Is(err, arena.ErrCapacityExceeded) {
		return probeResult{}, fmt.Errorf("construct: %w", err)
	}

	metrics := box.Metrics()
	result := probeResult{
		Capacity:    metrics.UsableSize,
		MappedSize:  metrics.MappedSize,
		PageSize:    metrics.PageSize,
		GuardPages:  metrics.GuardPages,
		SizeInUse:   metrics.Arena.SizeInUse,
		Utilization: metrics.Arena.Utilization,
		GuardTrap:   "skipped (no guard pages)",
	}
	for _, allocation := range box.Records() {
		result.Allocations = append(result.Allocations, probeAllocation{
			Offset:      allocation.Offset,
			ElementSize: allocation.ElementSize,
			Count:       allocation.Count,
			Tag:         allocation.Tag,
		})
	}

	if metrics.GuardPages && rawCount > 0 {
		result.GuardTrap = tripBackGuard(box, raw, metrics)
	}

	digest, err := box.Digest()
	if err != nil {
		return probeResult{}, err
	}
	result.Digest = digest.String()
	return result, nil
}

// tripBackGuard writes the first byte of the back guard page, which
// starts at the usable base plus the usable size rounded up to a page.
func tripBackGuard(box *sandbox.Sandbox, raw arena.Allocation, metrics sandbox.Metrics) string {
	allocationBase := unsafe.Pointer(unsafe.SliceData(box.Bytes(raw)))
	usableBase := unsafe.Add(allocationBase, -int(raw.Offset))
	pageSize := uint64(metrics.PageSize)
	guardOffset := (metrics.UsableSize + pageSize - 1) / pageSize * pageSize

	err := box.Guard(func() { pokeByte(usableBase, int(guardOffset)) })
	var violation *region.GuardViolation
	if errors.As(err, &violation) {
		return fmt.Sprintf("trapped: %s", violation.Error())
	}
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return "not trapped"
}

//go:noinline
func pokeByte(pointer unsafe.Pointer, offset int) {
	*(*byte)(unsafe.Add(pointer, offset)) = 0xff
}

func printProbe(w io.Writer, result probeResult) {
	fmt.Fprintf(w, "capacity:    %d bytes\n", result.Capacity)
	fmt.Fprintf(w, "mapped:      %d bytes (page size %d, guard pages %t)\n",
		result.MappedSize, result.PageSize, result.GuardPages)
	fmt.Fprintf(w, "in use:      %d bytes (%.1f%%)\n", result.SizeInUse, result.Utilization*100)
	for _, allocation := range result.Allocations {
		fmt.Fprintf(w, "  offset %-8d %d x %d bytes  %s\n",
			allocation.Offset, allocation.Count, allocation.ElementSize, allocation.Tag)
	}
	fmt.Fprintf(w, "guard:       %s\n", result.GuardTrap)
	fmt.Fprintf(w, "digest:      %s\n", result.Digest)
}
