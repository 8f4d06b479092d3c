// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arena

// Metrics is a snapshot of arena usage.
type Metrics struct {
	SizeInUse   uint64  // Bytes consumed, alignment padding included
	Capacity    uint64  // Total bytes the arena can hand out
	Allocations int     // Number of allocation records
	Utilization float64 // SizeInUse / Capacity, 0 when Capacity is 0
}

// Utilization returns the fraction of capacity consumed.
func (a *Arena) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(a.cursor) / float64(capacity)
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() Metrics {
	return Metrics{
		SizeInUse:   a.Used(),
		Capacity:    a.Capacity(),
		Allocations: len(a.records),
		Utilization: a.Utilization(),
	}
}
