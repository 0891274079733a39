// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"fmt"
	"io"

	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
)

func (d *Dev) String() string {
	return fmt.Sprintf("%s: %s %v address %s", d.Name(), &d.pciDev.GetDevice().Addr, dev_id(d.pciConfig.Device), &d.address)
}

// Status summarizes hardware state for display.
func (d *Dev) Status() (s string) {
	s = "down"
	if d.IsUp() {
		s = fmt.Sprintf("up %dM", d.Speed())
	}
	if d.have_eeprom {
		s += ", eeprom"
	} else {
		s += ", flash"
	}
	if d.inLoopback() {
		s += ", loopback mac"
	}
	return
}

// DumpRings writes ring state and every descriptor.
func (d *Dev) DumpRings(w io.Writer) {
	if !d.hold() {
		fmt.Fprintf(w, "%s: closed\n", d.Name())
		return
	}
	defer d.life.RUnlock()
	if c := d.last_irq.Load(); c != 0 {
		fmt.Fprintf(w, "last irq: %s\n", irqString(c))
	}
	{
		r := &d.tx
		r.mu.Lock()
		fmt.Fprintf(w, "tx ring: len %d, sw head %d tail %d, hw head %d tail %d, in flight %d\n",
			r.len, r.head, r.tail, d.get(regs.TDH), d.get(regs.TDT), r.n_in_flight())
		for i := uint(0); i < r.len; i++ {
			x := regs.TxDescriptorAt(r.desc.Data, i).Load()
			if x.BufferAddress == 0 {
				continue
			}
			fmt.Fprintf(w, "  %4d: %s%s\n", i, x.String(), txFlags(x.Command))
		}
		r.mu.Unlock()
	}
	{
		r := &d.rx
		r.mu.Lock()
		fmt.Fprintf(w, "rx ring: len %d, next %d, hw head %d tail %d\n",
			r.len, r.next, d.get(regs.RDH), d.get(regs.RDT))
		for i := uint(0); i < r.len; i++ {
			x := regs.RxDescriptorAt(r.desc.Data, i).Load()
			if x.Status == 0 {
				continue
			}
			fmt.Fprintf(w, "  %4d: %s\n", i, x.String())
		}
		r.mu.Unlock()
	}
}

func txFlags(cmd uint8) (s string) {
	if cmd&regs.TxCmdEndOfPacket != 0 {
		s += ", eop"
	}
	if cmd&regs.TxCmdInsertFcs != 0 {
		s += ", insert-fcs"
	}
	if cmd&regs.TxCmdInsertCsum != 0 {
		s += ", insert-checksum"
	}
	if cmd&regs.TxCmdReportStatus != 0 {
		s += ", report-status"
	}
	if cmd&regs.TxCmdInterruptDelay != 0 {
		s += ", interrupt-delay"
	}
	return
}
