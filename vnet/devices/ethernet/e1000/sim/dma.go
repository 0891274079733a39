// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
	"github.com/platinasystems/e1000/vnet/ethernet"
)

// Longest frame accepted without RCTL.LPE: a tagged frame with FCS.
const maxFrameBytes = ethernet.MaxFrameBytes + ethernet.VlanHeaderBytes + ethernet.CrcBytes

type ring struct {
	base       hw.Reg32
	len        hw.Reg32
	head, tail hw.Reg32
}

var (
	txRing = ring{base: regs.TDBAL, len: regs.TDLEN, head: regs.TDH, tail: regs.TDT}
	rxRing = ring{base: regs.RDBAL, len: regs.RDLEN, head: regs.RDH, tail: regs.RDT}
)

// ring returns descriptor memory and ring length; zero length when
// the ring is not set up.
func (d *Device) ring(r ring) (b []byte, n uint) {
	n = uint(*d.reg(r.len)) / regs.DescriptorBytes
	if n == 0 {
		return
	}
	phys := uint64(*d.reg(r.base)) | uint64(*d.reg(r.base + 4))<<32
	var ok bool
	if b, ok = d.mem.PhysSlice(phys, n*regs.DescriptorBytes); !ok {
		d.violation("ring at 0x%x: bad dma address", phys)
		return nil, 0
	}
	return
}

// Hardware fetches and sends descriptors from head up to tail.
func (d *Device) transmit() {
	if *d.reg(regs.TCTL)&regs.TctlEnable == 0 {
		return
	}
	b, n := d.ring(txRing)
	if n == 0 {
		return
	}
	head, tail := d.reg(regs.TDH), *d.reg(regs.TDT)
	if tail >= uint32(n) {
		d.violation("tdt %d beyond ring of %d", tail, n)
		return
	}
	done := false
	for *head != tail {
		i := uint(*head)
		x := regs.TxDescriptorAt(b, i).Load()
		buf, ok := d.mem.PhysSlice(x.BufferAddress, uint(x.Length))
		if !ok {
			d.violation("tx descriptor %d: bad buffer 0x%x len %d", i, x.BufferAddress, x.Length)
			return
		}
		if x.Command&regs.TxCmdInsertFcs == 0 {
			d.violation("tx descriptor %d: fcs insert not set", i)
		}
		d.txFrame = append(d.txFrame, buf...)
		if x.Command&regs.TxCmdEndOfPacket != 0 {
			d.sendFrame(d.txFrame)
			d.txFrame = nil
		}
		if x.Command&regs.TxCmdReportStatus != 0 {
			if d.cfg.HoldTx {
				d.txHeld = append(d.txHeld, i)
			} else {
				regs.TxDescriptorAt(b, i).SetStatus(regs.TxStatusDone)
				done = true
			}
		}
		*head = uint32((i + 1) % n)
	}
	if done {
		d.interrupt(regs.IcrTxDone | regs.IcrTxQueueEmpty)
	}
}

func (d *Device) sendFrame(f []byte) {
	d.sent = append(d.sent, f)
	d.addStat(regs.GPTC, 1)
	d.addStat(regs.TPT, 1)
	d.addStat64(regs.GOTCL, uint64(len(f)))
	lb := *d.reg(regs.RCTL)&regs.RctlLoopbackMask == regs.RctlLoopbackMac
	if lb || d.cfg.Loopback && d.linkUp() {
		d.receive(append([]byte(nil), f...), 0)
	}
}

// CompleteTx writes back status for the oldest n held descriptors,
// or all of them when n < 0.
func (d *Device) CompleteTx(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 0 || n > len(d.txHeld) {
		n = len(d.txHeld)
	}
	b, _ := d.ring(txRing)
	for _, i := range d.txHeld[:n] {
		regs.TxDescriptorAt(b, i).SetStatus(regs.TxStatusDone)
	}
	d.txHeld = d.txHeld[n:]
	if n > 0 {
		d.interrupt(regs.IcrTxDone)
	}
}

// HoldTx changes whether transmit write back is deferred.
func (d *Device) HoldTx(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.HoldTx = v
}

// Sent returns frames transmitted so far.
func (d *Device) Sent() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.sent...)
}

// Inject delivers a frame from the wire with the given descriptor
// error bits.  It returns false when the frame was dropped.
func (d *Device) Inject(frame []byte, errors uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.linkUp() {
		return false
	}
	return d.receive(frame, errors)
}

func (d *Device) receive(frame []byte, errors uint8) bool {
	rctl := *d.reg(regs.RCTL)
	if rctl&regs.RctlEnable == 0 {
		return false
	}
	if len(frame) > maxFrameBytes && rctl&regs.RctlLongPacket == 0 {
		d.addStat(regs.ROC, 1)
		return false
	}
	b, n := d.ring(rxRing)
	if n == 0 {
		return false
	}
	bufBytes := regs.RxBufferSize(rctl)
	need := (uint(len(frame)) + bufBytes - 1) / bufBytes
	if need == 0 {
		need = 1
	}
	head, tail := d.reg(regs.RDH), *d.reg(regs.RDT)
	// Hardware owns descriptors head up to (not including) tail.
	avail := (uint(tail) + n - uint(*head)) % n
	if need > avail {
		d.addStat(regs.MPC, 1)
		d.addStat(regs.RNBC, 1)
		d.interrupt(regs.IcrRxOverrun)
		return false
	}
	for k := uint(0); k < need; k++ {
		i := uint(*head)
		rd := regs.RxDescriptorAt(b, i)
		chunk := frame[k*bufBytes:]
		if uint(len(chunk)) > bufBytes {
			chunk = chunk[:bufBytes]
		}
		buf, ok := d.mem.PhysSlice(rd.LoadAddress(), bufBytes)
		if !ok {
			d.violation("rx descriptor %d: bad buffer 0x%x", i, rd.LoadAddress())
			return false
		}
		copy(buf, chunk)
		status, errs := uint8(regs.RxStatusDone), uint8(0)
		if k+1 == need {
			status |= regs.RxStatusEndOfPacket
			errs = errors
		}
		rd.WriteBack(uint16(len(chunk)), 0, status, errs, 0)
		*head = uint32((i + 1) % n)
	}
	d.addStat(regs.TPR, 1)
	if errors == 0 {
		d.addStat(regs.GPRC, 1)
		d.addStat64(regs.GORCL, uint64(len(frame)))
	}
	if errors&regs.RxErrorCrc != 0 {
		d.addStat(regs.CRCERRS, 1)
	}
	if errors&(regs.RxErrorSymbol|regs.RxErrorData) != 0 {
		d.addStat(regs.RXERRC, 1)
	}
	causes := uint32(regs.IcrRxTimer)
	if avail-need < n/2 {
		causes |= regs.IcrRxMinThresh
	}
	d.interrupt(causes)
	return true
}
