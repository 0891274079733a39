// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim models an 8254x gigabit ethernet controller well enough
// to run the e1000 driver without hardware: register file, EEPROM,
// descriptor ring DMA, statistics and interrupt causes.
package sim

import (
	"fmt"
	"sync"

	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
	"github.com/platinasystems/e1000/vnet/ethernet"
)

type Config struct {
	// Station address stored in EEPROM words 0-2.
	Mac ethernet.Address

	// Remaining EEPROM contents starting at word 3.
	Eeprom []uint16

	// Flash only part: EECD present bit clear.
	NoEeprom bool

	// Receive address 0 is loaded valid at reset even without EEPROM
	// (as done by firmware on some boards).
	RalValid bool

	// EERD polls that read back not done before data is ready.
	EepromLatency int

	// EERD done bit never sets.
	EepromStuck bool

	// CTRL reset bit never clears.
	ResetStuck bool

	// Link partner absent at power on.
	LinkDown bool

	// Frames sent are looped back into receive ring (cable loopback).
	Loopback bool

	// Transmit descriptors are not written back until CompleteTx.
	HoldTx bool
}

const eepromWords = 64

type Device struct {
	mu  sync.Mutex
	cfg Config
	mem hw.PhysMem

	r      [regs.WindowBytes / 4]uint32
	eeprom [eepromWords]uint16

	link bool

	// Outstanding EEPROM read.
	eepromPending bool
	eepromPolls   int
	eepromAddr    uint

	icr, ims uint32
	irq      chan struct{}

	txFrame []byte
	txHeld  []uint
	sent    [][]byte

	violations []string
}

func New(mem hw.PhysMem, cfg Config) (d *Device) {
	d = &Device{
		cfg:  cfg,
		mem:  mem,
		link: !cfg.LinkDown,
		irq:  make(chan struct{}, 1),
	}
	for i := range d.eeprom {
		d.eeprom[i] = 0xffff
	}
	for i := 0; i < 3; i++ {
		d.eeprom[i] = uint16(cfg.Mac[2*i]) | uint16(cfg.Mac[2*i+1])<<8
	}
	copy(d.eeprom[3:], cfg.Eeprom)
	d.reset()
	return
}

func (d *Device) reg(r hw.Reg32) *uint32 { return &d.r[r.Offset()/4] }

// Power on register values.
func (d *Device) reset() {
	d.r = [len(d.r)]uint32{}
	*d.reg(regs.STATUS) = regs.StatusFullDuplex | 2<<regs.StatusSpeedShift
	if !d.cfg.NoEeprom {
		*d.reg(regs.EECD) = regs.EecdPresent
	}
	if !d.cfg.NoEeprom || d.cfg.RalValid {
		m := &d.cfg.Mac
		*d.reg(regs.RAL0) = uint32(m[0]) | uint32(m[1])<<8 | uint32(m[2])<<16 | uint32(m[3])<<24
		*d.reg(regs.RAH0) = uint32(m[4]) | uint32(m[5])<<8 | regs.RahAddressValid
	}
	*d.reg(regs.TIPG) = 8
	d.icr, d.ims = 0, 0
	d.eepromPending = false
	d.txFrame = nil
	d.txHeld = nil
}

func (d *Device) violation(format string, args ...interface{}) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

// Violations returns driver protocol errors seen so far.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

func checkOffset(o uint) {
	if o&3 != 0 || o >= regs.WindowBytes {
		panic(fmt.Errorf("sim: register offset 0x%x outside window", o))
	}
}

func (d *Device) linkUp() bool {
	return d.link && *d.reg(regs.CTRL)&regs.CtrlSetLinkUp != 0
}

func (d *Device) status() (v uint32) {
	v = *d.reg(regs.STATUS) &^ regs.StatusLinkUp
	if d.linkUp() {
		v |= regs.StatusLinkUp
	}
	return
}

func (d *Device) Load32(o uint) (v uint32) {
	checkOffset(o)
	d.mu.Lock()
	defer d.mu.Unlock()
	r := hw.Reg32(o)
	switch {
	case r == regs.STATUS:
		v = d.status()
	case r == regs.EERD:
		v = d.eerdRead()
	case r == regs.ICR:
		v = d.icr
		d.icr = 0
	case r == regs.IMS:
		v = d.ims
	case r >= regs.STATS && r < regs.STATS+0x100:
		p := d.reg(r)
		v = *p
		*p = 0
	default:
		v = d.r[o/4]
	}
	return
}

func (d *Device) Store32(o uint, v uint32) {
	checkOffset(o)
	d.mu.Lock()
	defer d.mu.Unlock()
	r := hw.Reg32(o)
	switch r {
	case regs.CTRL:
		d.ctrlWrite(v)
	case regs.STATUS:
	case regs.EECD:
		v &^= regs.EecdPresent | regs.EecdGrant
		if v&regs.EecdRequest != 0 {
			v |= regs.EecdGrant
		}
		if !d.cfg.NoEeprom {
			v |= regs.EecdPresent
		}
		*d.reg(r) = v
	case regs.EERD:
		d.eerdWrite(v)
	case regs.ICR:
		d.icr &^= v
	case regs.ICS:
		d.interrupt(v)
	case regs.IMS:
		d.ims |= v
		d.interrupt(0)
	case regs.IMC:
		d.ims &^= v
	case regs.TDT:
		*d.reg(r) = v
		d.transmit()
	case regs.RCTL:
		*d.reg(r) = v
	default:
		d.r[o/4] = v
	}
}

func (d *Device) ctrlWrite(v uint32) {
	p := d.reg(regs.CTRL)
	if v&regs.CtrlReset != 0 {
		if d.cfg.ResetStuck {
			*p = v
			return
		}
		d.reset()
		return
	}
	was := d.linkUp()
	*p = v
	if was != d.linkUp() {
		d.interrupt(regs.IcrLinkChange)
	}
}

func (d *Device) eerdWrite(v uint32) {
	if v&regs.EerdStart == 0 {
		*d.reg(regs.EERD) = v
		return
	}
	if d.cfg.NoEeprom {
		d.violation("eerd start without eeprom")
	}
	if *d.reg(regs.EECD)&regs.EecdRequest == 0 {
		d.violation("eerd start without eecd request")
	}
	if d.eepromPending {
		d.violation("eerd start while word %d pending", d.eepromAddr)
	}
	d.eepromPending = true
	d.eepromPolls = d.cfg.EepromLatency
	d.eepromAddr = uint(v&regs.EerdAddrMask) >> regs.EerdAddrShift
	*d.reg(regs.EERD) = v &^ (regs.EerdDone | 0xffff<<regs.EerdDataShift)
}

func (d *Device) eerdRead() (v uint32) {
	p := d.reg(regs.EERD)
	if d.eepromPending && !d.cfg.EepromStuck && !d.cfg.NoEeprom {
		if d.eepromPolls > 0 {
			d.eepromPolls--
		} else {
			w := uint16(0xffff)
			if d.eepromAddr < eepromWords {
				w = d.eeprom[d.eepromAddr]
			}
			*p = *p&^regs.EerdStart | regs.EerdDone | uint32(w)<<regs.EerdDataShift
			d.eepromPending = false
		}
	}
	return *p
}

// interrupt raises causes and notifies when any unmasked cause is set.
func (d *Device) interrupt(causes uint32) {
	d.icr |= causes
	if d.icr&d.ims != 0 {
		select {
		case d.irq <- struct{}{}:
		default:
		}
	}
}

// Irq returns the channel signalled for interrupts.
func (d *Device) Irq() <-chan struct{} { return d.irq }

// SetLink changes link partner presence.
func (d *Device) SetLink(up bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	was := d.linkUp()
	d.link = up
	if was != d.linkUp() {
		d.interrupt(regs.IcrLinkChange)
	}
}

// Stat peeks at a statistics register without clearing it.
func (d *Device) Stat(r hw.Reg32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.reg(r)
}

// Reg peeks at a register without side effects.
func (d *Device) Reg(r hw.Reg32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch r {
	case regs.STATUS:
		return d.status()
	case regs.ICR:
		return d.icr
	case regs.IMS:
		return d.ims
	}
	return *d.reg(r)
}

// SetEepromStuck makes EERD reads never complete.
func (d *Device) SetEepromStuck(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.EepromStuck = v
}

func (d *Device) addStat(r hw.Reg32, n uint32) {
	p := d.reg(r)
	if *p+n >= *p {
		*p += n
	}
}

func (d *Device) addStat64(lo hw.Reg32, n uint64) {
	v := uint64(*d.reg(lo)) | uint64(*d.reg(lo+4))<<32
	v += n
	*d.reg(lo) = uint32(v)
	*d.reg(lo + 4) = uint32(v >> 32)
}
