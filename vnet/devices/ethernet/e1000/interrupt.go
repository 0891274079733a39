// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/log"

	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
)

var irqStrings = [...]string{
	0:  "tx descriptor written back",
	1:  "tx queue empty",
	2:  "link state change",
	3:  "rx sequence error",
	4:  "rx descriptor minimum threshold",
	6:  "rx overrun",
	7:  "rx timer",
	9:  "mdio access complete",
	10: "rx ordered sets",
	15: "tx descriptor low threshold",
	16: "rx small packet",
}

func irqString(causes uint32) (s string) {
	for i, n := range irqStrings {
		if causes&(1<<uint(i)) != 0 && n != "" {
			if s != "" {
				s += ", "
			}
			s += n
		}
	}
	return
}

func (d *Dev) InterruptEnable(enable bool) {
	if enable {
		d.set(regs.IMS, regs.IcrDriverDefault)
	} else {
		d.set(regs.IMC, regs.IcrAll)
	}
	d.write_flush()
}

// Causes worth a log line.
const irqErrors = regs.IcrRxSequence | regs.IcrRxOverrun

// Interrupt services an interrupt delivered by the kernel (e.g. a
// read on the uio device returned).  Reading ICR acknowledges it.
func (d *Dev) Interrupt() {
	if !d.hold() {
		return
	}
	causes := d.get(regs.ICR)
	prev := d.last_irq.Swap(causes)
	if causes&regs.IcrRxOverrun != 0 {
		d.sw_counters.add(rx_overruns, 1)
	}
	if e := causes &^ prev & irqErrors; e != 0 {
		log.Print("daemon", "err", d.Name(), ": irq ", irqString(e))
	}
	up, changed := d.service(causes)
	d.life.RUnlock()
	if changed {
		d.linkChange(up)
	}
}

// Poll services the device without interrupts by looking at
// descriptor status and link state.  It may be called from a timer or
// busy loop in place of Interrupt.
func (d *Dev) Poll() {
	if !d.hold() {
		return
	}
	up, changed := d.service(0)
	d.life.RUnlock()
	if changed {
		d.linkChange(up)
	}
}

// service runs with the register window held and reports a link
// state change for the caller to announce once released.
func (d *Dev) service(causes uint32) (up, changed bool) {
	d.txReclaim()
	if causes&(regs.IcrRxTimer|regs.IcrRxMinThresh|regs.IcrRxOverrun) != 0 || d.rxPending() {
		d.wakeReaders()
	}
	up = d.linkUp()
	changed = d.link_up.Swap(up) != up
	return
}

func (d *Dev) wakeReaders() {
	select {
	case d.rxWake <- struct{}{}:
	default:
	}
}

func (d *Dev) linkChange(up bool) {
	s := "down"
	if up {
		s = "up"
	}
	log.Print("daemon", "info", d.Name(), ": link ", s)
	for _, h := range d.linkHooks {
		h(d, up)
	}
	// Readers waiting on link down see ErrLinkDown.
	d.wakeReaders()
}

// AddLinkHook registers h to be called from Interrupt/Poll on link
// state change.  Hooks must be added before Run.
func (d *Dev) AddLinkHook(h LinkHook) {
	d.linkHooks = append(d.linkHooks, h)
}

// Run services interrupts received on irq and, when PollInterval is
// configured, polls at that interval.  It returns when ctx ends.
func (d *Dev) Run(ctx context.Context, irq <-chan struct{}) error {
	var tick <-chan time.Time
	if d.PollInterval.Duration > 0 {
		t := time.NewTicker(d.PollInterval.Duration)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-irq:
			if !ok {
				irq = nil
				continue
			}
			d.Interrupt()
		case <-tick:
			d.Poll()
		}
	}
}

// ReadContext blocks until a frame is received into b or ctx ends.
func (d *Dev) ReadContext(ctx context.Context, b []byte) (n int, err error) {
	bo := &backoff.Backoff{
		Min:    50 * time.Microsecond,
		Max:    10 * time.Millisecond,
		Factor: 2,
	}
	for {
		var got bool
		if n, _, got, err = d.receive(b); got || err != nil {
			return
		}
		if !d.IsUp() && !d.inLoopback() {
			return 0, ErrLinkDown
		}
		t := time.NewTimer(bo.Duration())
		select {
		case <-ctx.Done():
			t.Stop()
			return 0, ctx.Err()
		case <-d.rxWake:
			t.Stop()
			bo.Reset()
		case <-t.C:
		}
	}
}
