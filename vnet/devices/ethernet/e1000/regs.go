// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
)

type reg = hw.Reg32

func (d *Dev) get(r reg) uint32    { return r.Get(d.regs) }
func (d *Dev) set(r reg, v uint32) { r.Set(d.regs, v) }

// Read-modify-write sequences hold regMu so that unrelated operations
// never interleave on one register.
func (d *Dev) or(r reg, v uint32) (x uint32) {
	d.regMu.Lock()
	defer d.regMu.Unlock()
	x = d.get(r) | v
	d.set(r, x)
	return
}

func (d *Dev) andnot(r reg, v uint32) (x uint32) {
	d.regMu.Lock()
	defer d.regMu.Unlock()
	x = d.get(r) &^ v
	d.set(r, x)
	return
}

func (d *Dev) modify(r reg, mask, v uint32) (x uint32) {
	d.regMu.Lock()
	defer d.regMu.Unlock()
	x = d.get(r)&^mask | v&mask
	d.set(r, x)
	return
}

// Write flush by reading status register.
func (d *Dev) write_flush() { d.get(regs.STATUS) }

// poll calls done until it returns true, sleeping with exponential
// backoff.  It gives up with ErrHardwareTimeout after timeout or when
// ctx ends.
func poll(ctx context.Context, timeout time.Duration, done func() bool) error {
	b := &backoff.Backoff{
		Min:    10 * time.Microsecond,
		Max:    timeout / 8,
		Factor: 2,
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}
	deadline := time.Now().Add(timeout)
	for {
		if done() {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %v", ErrHardwareTimeout, timeout)
		}
		t := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %w", ErrHardwareTimeout, ctx.Err())
		case <-t.C:
		}
	}
}
