// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is an injectable time source.
//
// Structs that stamp times or run periodic work hold a Clock field.
// Production wires Real(); tests wire Fake() and move time with
// Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	host := space.NewHost(space.HostConfig{Clock: c})
//	go host.RunReaper(ctx, time.Minute, 10*time.Minute)
//	c.WaitForTickers(1)
//	c.Advance(11 * time.Minute)
package clock
