// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Driver for Intel 8254x gigabit ethernet controllers (e1000).
package e1000

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/platinasystems/log"

	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/elib/hw/pci"
	"github.com/platinasystems/e1000/vnet"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
	"github.com/platinasystems/e1000/vnet/ethernet"
)

// Dev is one attached controller.  It exclusively owns its register
// window and DMA memory until Close.
type Dev struct {
	Config

	pciDev pci.Devicer
	// Status/command as captured at attach.
	pciConfig pci.ConfigHeader
	regs      hw.Regs
	dma       hw.DmaAllocator

	regMu    sync.Mutex
	eepromMu sync.Mutex

	// EEPROM (vs. flash) present; read once at attach.
	have_eeprom bool
	address     ethernet.Address

	tx tx_ring
	rx rx_ring

	addrMu sync.Mutex
	addrs  []vnet.BindAddress

	// Register access from Interrupt, Poll and queries holds life for
	// reading; Close unmaps the window holding it for writing.
	life sync.RWMutex

	link_up   atomic.Bool
	loopback  atomic.Int32
	closed    atomic.Bool
	last_irq  atomic.Uint32
	rxWake    chan struct{}
	linkHooks []LinkHook

	counter_main
}

// LinkHook is called on link state change.
type LinkHook func(d *Dev, isUp bool)

// New attaches to the PCI function p and brings the controller up:
// reset, address from EEPROM, descriptor rings, link.
func New(ctx context.Context, p pci.Devicer, dma hw.DmaAllocator, c Config) (d *Dev, err error) {
	if err = c.validate(); err != nil {
		return
	}
	c.setDefaults()
	d = &Dev{
		Config: c,
		pciDev: p,
		dma:    dma,
		rxWake: make(chan struct{}, 1),
	}
	if err = d.attach(); err != nil {
		return nil, err
	}
	if err = d.Init(ctx); err != nil {
		log.Print("daemon", "err", d.Name(), ": ", err)
		d.free_rings()
		p.Close()
		return nil, err
	}
	log.Print("daemon", "info", d.Name(), ": ", dev_id(d.pciConfig.Device), " address ", &d.address)
	return
}

// attach validates what the PCI layer supplies: status/command
// readable, memory decode and bus mastering enabled and a register
// window for BAR0.
func (d *Dev) attach() (err error) {
	p := d.pciDev
	if err = p.Open(); err != nil {
		return fmt.Errorf("%w: open: %v", ErrInvalidDevice, err)
	}
	defer func() {
		if err != nil {
			p.Close()
		}
	}()
	pd := p.GetDevice()
	h := pd.Config
	d.pciConfig = h
	if !h.Status.Valid() || !h.Command.Valid() {
		return fmt.Errorf("%w: %s: status 0x%04x command 0x%04x", ErrInvalidDevice, &pd.Addr, uint16(h.Status), uint16(h.Command))
	}
	if !Supported(h.DeviceID) {
		return fmt.Errorf("%w: %s: unsupported device %v", ErrInvalidDevice, &pd.Addr, h.DeviceID)
	}
	const want = pci.MemoryEnable | pci.BusMasterEnable
	if h.Command&want != want {
		return fmt.Errorf("%w: %s: command %v lacks memory/bus-master", ErrInvalidDevice, &pd.Addr, h.Command)
	}
	if d.regs, err = p.MapResource(0); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDevice, err)
	}
	return
}

func (d *Dev) Init(ctx context.Context) (err error) {
	// Reset chip.
	d.set(regs.CTRL, d.get(regs.CTRL)|regs.CtrlReset)
	err = poll(ctx, d.ResetTimeout.Duration, func() bool {
		return d.get(regs.CTRL)&regs.CtrlReset == 0
	})
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	// Mask and clear any interrupts left over.
	d.set(regs.IMC, regs.IcrAll)
	d.get(regs.ICR)

	d.have_eeprom = d.detectEeprom()
	if d.address, err = d.stationAddress(ctx); err != nil {
		return
	}
	d.setRxAddress(0, d.address)
	for i := uint(0); i < regs.NMta; i++ {
		d.set(regs.MTA.Add(i), 0)
	}

	if err = d.initDescriptors(); err != nil {
		return
	}
	d.counter_init()
	d.enableRings()

	if d.Promiscuous {
		d.SetPromiscuous(true)
	}
	if d.Loopback != "" {
		x, _ := vnet.ParseIfLoopbackType(d.Loopback)
		if err = d.SetLoopback(x); err != nil {
			return
		}
	}

	d.set(regs.ITR, uint32(d.InterruptThrottle))
	d.or(regs.CTRL, regs.CtrlSetLinkUp|regs.CtrlAsde)
	d.write_flush()
	d.link_up.Store(d.IsUp())
	d.InterruptEnable(true)
	return
}

func (d *Dev) setRxAddress(i uint, a ethernet.Address) {
	lo := uint32(a[0]) | uint32(a[1])<<8 | uint32(a[2])<<16 | uint32(a[3])<<24
	hi := uint32(a[4]) | uint32(a[5])<<8 | regs.RahAddressValid
	d.set(regs.RAL0.Add(2*i), lo)
	d.set(regs.RAH0.Add(2*i), hi)
}

// hold keeps the register window mapped until d.life.RUnlock.  It
// reports false once the device is closed.
func (d *Dev) hold() bool {
	d.life.RLock()
	if d.closed.Load() {
		d.life.RUnlock()
		return false
	}
	return true
}

// Close stops DMA, masks interrupts, frees ring memory and closes the
// PCI function.
func (d *Dev) Close() (err error) {
	d.life.Lock()
	defer d.life.Unlock()
	if d.closed.Swap(true) {
		return ErrClosed
	}
	d.InterruptEnable(false)
	d.andnot(regs.RCTL, regs.RctlEnable)
	d.andnot(regs.TCTL, regs.TctlEnable)
	d.write_flush()
	d.free_rings()
	err = d.pciDev.Close()
	log.Print("daemon", "info", d.Name(), ": closed")
	return
}
