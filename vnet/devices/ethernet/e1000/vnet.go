// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"fmt"

	"github.com/platinasystems/e1000/vnet"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
	"github.com/platinasystems/e1000/vnet/ethernet"
)

var _ vnet.Interface = (*Dev)(nil)

func (d *Dev) DriverName() string { return "e1000" }

func (d *Dev) Name() string {
	if d.InterfaceName != "" {
		return d.InterfaceName
	}
	return d.dev_name()
}

func (d *Dev) dev_name() string {
	a := d.pciDev.GetDevice().Addr
	return fmt.Sprintf("e1000%d-%d-%d", a.Bus, a.Slot, a.Fn)
}

// IsUp reports link status from hardware.
func (d *Dev) IsUp() bool {
	if !d.hold() {
		return false
	}
	defer d.life.RUnlock()
	return d.linkUp()
}

func (d *Dev) linkUp() bool { return d.get(regs.STATUS)&regs.StatusLinkUp != 0 }

// Speed returns link speed in Mbps.
func (d *Dev) Speed() uint {
	if !d.hold() {
		return 0
	}
	defer d.life.RUnlock()
	switch (d.get(regs.STATUS) & regs.StatusSpeedMask) >> regs.StatusSpeedShift {
	case 0:
		return 10
	case 1:
		return 100
	}
	return 1000
}

func (d *Dev) HardwareAddress() ethernet.Address { return d.address }

// Addresses returns a copy of the addresses bound by the network stack.
func (d *Dev) Addresses() []vnet.BindAddress {
	d.addrMu.Lock()
	defer d.addrMu.Unlock()
	return append([]vnet.BindAddress(nil), d.addrs...)
}

func (d *Dev) SetAddresses(as []vnet.BindAddress) {
	d.addrMu.Lock()
	defer d.addrMu.Unlock()
	d.addrs = append([]vnet.BindAddress(nil), as...)
}

func (d *Dev) AddAddress(a vnet.BindAddress) {
	d.addrMu.Lock()
	defer d.addrMu.Unlock()
	for i := range d.addrs {
		if d.addrs[i].Equal(a) {
			return
		}
	}
	d.addrs = append(d.addrs, a)
}

func (d *Dev) DelAddress(a vnet.BindAddress) (ok bool) {
	d.addrMu.Lock()
	defer d.addrMu.Unlock()
	for i := range d.addrs {
		if d.addrs[i].Equal(a) {
			d.addrs = append(d.addrs[:i], d.addrs[i+1:]...)
			return true
		}
	}
	return
}

// Read receives one frame into b without blocking.  It returns bytes
// copied, whether another frame is already waiting, and ErrLinkDown
// only when nothing was pending and the link is down.
func (d *Dev) Read(b []byte) (n int, more bool, err error) {
	var got bool
	if n, more, got, err = d.receive(b); got || err != nil {
		return
	}
	if !d.IsUp() && !d.inLoopback() {
		err = ErrLinkDown
	}
	return
}

func (d *Dev) txReady() error {
	if d.closed.Load() {
		return ErrClosed
	}
	if !d.IsUp() && !d.inLoopback() {
		return ErrLinkDown
	}
	return nil
}

// Write queues one frame.  A full ring returns ErrRingFull; the caller
// may retry once completions are reclaimed.
func (d *Dev) Write(b []byte) (n int, err error) {
	if err = d.txReady(); err != nil {
		return
	}
	return d.transmit(b, nil)
}

func (d *Dev) inLoopback() bool {
	return vnet.IfLoopbackType(d.loopback.Load()) == vnet.IfLoopbackMac
}

func (d *Dev) SetLoopback(x vnet.IfLoopbackType) (err error) {
	if !d.hold() {
		return ErrClosed
	}
	defer d.life.RUnlock()
	switch x {
	case vnet.IfLoopbackMac:
		d.modify(regs.RCTL, regs.RctlLoopbackMask, regs.RctlLoopbackMac)
	case vnet.IfLoopbackNone:
		d.andnot(regs.RCTL, regs.RctlLoopbackMask)
	default:
		return vnet.ErrNotSupported
	}
	d.loopback.Store(int32(x))
	return
}

func (d *Dev) SetPromiscuous(enable bool) {
	const v = regs.RctlUnicastPromisc | regs.RctlMulticastPromisc
	if !d.hold() {
		return
	}
	defer d.life.RUnlock()
	if enable {
		d.or(regs.RCTL, v)
	} else {
		d.andnot(regs.RCTL, v)
	}
}
