// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/elib/hw/pci"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/sim"
)

func TestAttachInvalid(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(p *sim.PciDevice)
	}{
		{"status", func(p *sim.PciDevice) { p.Config.Status = 0xffff }},
		{"command", func(p *sim.PciDevice) { p.Config.Command = 0xffff }},
		{"no bar", func(p *sim.PciDevice) { p.NoBar = true }},
		{"vendor", func(p *sim.PciDevice) { p.Config.Vendor = pci.Broadcom }},
		{"device", func(p *sim.PciDevice) { p.Config.Device = 0x10d3 }},
	} {
		h := &hw.Heap{}
		s := sim.New(h, sim.Config{Mac: testMac})
		p := s.Pci(testAddr)
		tc.setup(p)
		d, err := New(context.Background(), p, h, Config{})
		if !errors.Is(err, ErrInvalidDevice) {
			t.Errorf("%s: got %v want %v", tc.name, err, ErrInvalidDevice)
		}
		if d != nil {
			t.Errorf("%s: got device on error", tc.name)
		}
		if !p.Closed {
			t.Errorf("%s: pci device left open", tc.name)
		}
		if got := h.InUse(); got != 0 {
			t.Errorf("%s: dma in use %d", tc.name, got)
		}
	}
}

func TestAttach(t *testing.T) {
	d := newTestDev(t, sim.Config{}, Config{})
	if !d.pci.Opened {
		t.Errorf("pci device not opened")
	}
	const want = pci.MemoryEnable | pci.BusMasterEnable
	if got := d.pciConfig.Command; got&want != want {
		t.Errorf("command: got %v want %v", got, want)
	}
	if !d.IsUp() {
		t.Errorf("link down after init")
	}
	if got, want := d.Speed(), uint(1000); got != want {
		t.Errorf("speed: got %d want %d", got, want)
	}
	if got := d.sim.Reg(regs.IMS); got != regs.IcrDriverDefault {
		t.Errorf("ims: got 0x%x want 0x%x", got, regs.IcrDriverDefault)
	}
	for i := uint(0); i < regs.NMta; i++ {
		if v := d.sim.Reg(regs.MTA.Add(i)); v != 0 {
			t.Errorf("mta[%d]: got 0x%x want 0", i, v)
		}
	}
	if v := d.sim.Violations(); len(v) != 0 {
		t.Errorf("protocol violations: %v", v)
	}
}

func TestResetTimeout(t *testing.T) {
	h := &hw.Heap{}
	s := sim.New(h, sim.Config{Mac: testMac, ResetStuck: true})
	p := s.Pci(testAddr)
	_, err := New(context.Background(), p, h, Config{ResetTimeout: Duration{2 * time.Millisecond}})
	if !errors.Is(err, ErrHardwareTimeout) {
		t.Errorf("got %v want %v", err, ErrHardwareTimeout)
	}
	if !p.Closed {
		t.Errorf("pci device left open")
	}
}

func TestDmaExhausted(t *testing.T) {
	// Room for the tx ring but not all of the rx buffers.
	h := &hw.Heap{Limit: 20000}
	s := sim.New(h, sim.Config{Mac: testMac})
	p := s.Pci(testAddr)
	_, err := New(context.Background(), p, h, Config{TxRingLen: 8, RxRingLen: 8})
	if !errors.Is(err, ErrDmaAllocationFailed) {
		t.Errorf("got %v want %v", err, ErrDmaAllocationFailed)
	}
	if !errors.Is(err, hw.ErrDmaExhausted) {
		t.Errorf("got %v want %v", err, hw.ErrDmaExhausted)
	}
	if got := h.InUse(); got != 0 {
		t.Errorf("dma in use after failure: %d", got)
	}
	if !p.Closed {
		t.Errorf("pci device left open")
	}
}

func TestName(t *testing.T) {
	d := newTestDev(t, sim.Config{}, Config{})
	if got, want := d.Name(), "e10000-3-0"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
	d = newTestDev(t, sim.Config{}, Config{InterfaceName: "lan0"})
	if got, want := d.Name(), "lan0"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestClose(t *testing.T) {
	d := newTestDev(t, sim.Config{}, Config{})
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if !d.pci.Closed {
		t.Errorf("pci device left open")
	}
	if got := d.heap.InUse(); got != 0 {
		t.Errorf("dma in use after close: %d", got)
	}
	if got := d.sim.Reg(regs.IMS); got != 0 {
		t.Errorf("ims after close: got 0x%x want 0", got)
	}
	if got := d.sim.Reg(regs.RCTL); got&regs.RctlEnable != 0 {
		t.Errorf("rx still enabled after close")
	}
	if got := d.sim.Reg(regs.TCTL); got&regs.TctlEnable != 0 {
		t.Errorf("tx still enabled after close")
	}
	if _, _, err := d.Read(make([]byte, 64)); !errors.Is(err, ErrClosed) {
		t.Errorf("Read: got %v want %v", err, ErrClosed)
	}
	if _, err := d.Write(frame(64, 0)); !errors.Is(err, ErrClosed) {
		t.Errorf("Write: got %v want %v", err, ErrClosed)
	}
	if err := d.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close: got %v want %v", err, ErrClosed)
	}
	if d.IsUp() {
		t.Errorf("closed device reports link up")
	}
}

// unmapping is a simulated function whose register window faults,
// here counts, on access after Close.
type unmapping struct {
	*sim.PciDevice
	unmapped atomic.Bool
	late     atomic.Int32
}

func (p *unmapping) Close() error {
	p.unmapped.Store(true)
	return p.PciDevice.Close()
}

func (p *unmapping) MapResource(bar uint) (hw.Regs, error) {
	r, err := p.PciDevice.MapResource(bar)
	if err != nil {
		return nil, err
	}
	return unmappedRegs{Regs: r, p: p}, nil
}

type unmappedRegs struct {
	hw.Regs
	p *unmapping
}

func (r unmappedRegs) Load32(o uint) uint32 {
	if r.p.unmapped.Load() {
		r.p.late.Add(1)
	}
	return r.Regs.Load32(o)
}

func (r unmappedRegs) Store32(o uint, v uint32) {
	if r.p.unmapped.Load() {
		r.p.late.Add(1)
	}
	r.Regs.Store32(o, v)
}

func TestCloseConcurrent(t *testing.T) {
	h := &hw.Heap{}
	s := sim.New(h, sim.Config{Mac: testMac})
	p := &unmapping{PciDevice: s.Pci(testAddr)}
	d, err := New(context.Background(), p, h, Config{})
	if err != nil {
		t.Fatal(err)
	}
	ops := []func(){
		d.Interrupt,
		d.Poll,
		func() { d.IsUp() },
		func() { d.Speed() },
		func() { d.Counters() },
		func() { d.SetPromiscuous(true) },
		func() { d.DumpRings(io.Discard) },
		func() { d.EepromWords(context.Background(), 3) },
		func() { d.Write(frame(60, 0)) },
		func() { d.Read(make([]byte, 64)) },
	}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, op := range ops {
		wg.Add(1)
		go func(op func()) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					op()
				}
			}
		}(op)
	}
	time.Sleep(5 * time.Millisecond)
	if err = d.Close(); err != nil {
		t.Error(err)
	}
	time.Sleep(5 * time.Millisecond)
	close(stop)
	wg.Wait()
	if got := p.late.Load(); got != 0 {
		t.Errorf("register accesses after close: got %d want 0", got)
	}
}
