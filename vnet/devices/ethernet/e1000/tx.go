// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
)

// TxOffload requests hardware TCP/UDP checksum insertion: hardware
// sums from ChecksumStart to end of packet and stores the result at
// ChecksumOffset.
type TxOffload struct {
	InsertChecksum bool
	ChecksumStart  uint8
	ChecksumOffset uint8
}

func (r *tx_ring) n_in_flight() uint { return (r.tail + r.len - r.head) % r.len }

// Head == tail means empty ring so we can only fill LEN - 1 descriptors.
func (r *tx_ring) n_free() uint { return r.len - 1 - r.n_in_flight() }

// reclaim frees descriptors that hardware has written back done.
func (r *tx_ring) reclaim() (n uint) {
	for r.head != r.tail {
		x := regs.TxDescriptorAt(r.desc.Data, r.head)
		if x.LoadStatus()&regs.TxStatusDone == 0 {
			break
		}
		x.Clear()
		r.head = (r.head + 1) % r.len
		n++
	}
	return
}

// transmit copies b into the bounce buffers of as many descriptors as
// needed, then publishes the new tail.  A full ring is reported with
// ErrRingFull and no descriptor is touched.
func (d *Dev) transmit(b []byte, o *TxOffload) (n int, err error) {
	r := &d.tx
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.closed.Load() {
		return 0, ErrClosed
	}
	if len(b) == 0 {
		return
	}
	chunk := r.buf_bytes
	nd := (uint(len(b)) + chunk - 1) / chunk
	if nd > r.len-1 {
		d.sw_counters.add(tx_frame_too_long, 1)
		return 0, ErrFrameTooLong
	}
	r.reclaim()
	if nd > r.n_free() {
		d.sw_counters.add(tx_ring_full, 1)
		return 0, ErrRingFull
	}

	cmd0 := uint8(regs.TxCmdInsertFcs | regs.TxCmdReportStatus)
	if d.TxInterruptDelay != 0 {
		cmd0 |= regs.TxCmdInterruptDelay
	}
	i := r.tail
	for k := uint(0); k < nd; k++ {
		p := b[k*chunk:]
		if uint(len(p)) > chunk {
			p = p[:chunk]
		}
		buf := r.bufs[i]
		copy(buf.Data, p)
		cmd, cso, css := cmd0, uint8(0), uint8(0)
		if k+1 == nd {
			cmd |= regs.TxCmdEndOfPacket
		}
		if k == 0 && o != nil && o.InsertChecksum {
			cmd |= regs.TxCmdInsertCsum
			cso, css = o.ChecksumOffset, o.ChecksumStart
		}
		regs.TxDescriptorAt(r.desc.Data, i).Set(buf.Phys, uint16(len(p)), cso, cmd, css)
		i = (i + 1) % r.len
	}
	r.tail = i

	// Descriptors must be visible before hardware sees new tail.
	hw.MemoryBarrier()
	d.set(regs.TDT, uint32(r.tail))

	d.sw_counters.add(tx_packets, 1)
	d.sw_counters.add(tx_bytes, uint64(len(b)))
	n = len(b)
	return
}

// txReclaim is the transmit half of interrupt/poll service.
func (d *Dev) txReclaim() {
	r := &d.tx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.len != 0 {
		r.reclaim()
	}
}

// WriteOffload is Write with checksum insertion.
func (d *Dev) WriteOffload(b []byte, o TxOffload) (n int, err error) {
	if err = d.txReady(); err != nil {
		return
	}
	return d.transmit(b, &o)
}
