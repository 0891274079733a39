// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
)

// scan looks for a complete frame at the consumer index: a run of done
// descriptors ending with end of packet.  It returns the number of
// descriptors in the frame (zero when none is ready), the or of their
// error bytes and total length.
func (r *rx_ring) scan() (nd uint, errs uint8, n_bytes uint) {
	i := r.next
	for k := uint(0); k < r.len; k++ {
		x := regs.RxDescriptorAt(r.desc.Data, i)
		s, e := x.LoadStatus()
		if s&regs.RxStatusDone == 0 {
			return 0, 0, 0
		}
		l, _ := x.LoadLength()
		errs |= e
		n_bytes += uint(l)
		if s&regs.RxStatusEndOfPacket != 0 {
			nd = k + 1
			return
		}
		i = (i + 1) % r.len
	}
	return 0, 0, 0
}

// recycle re-arms the nd descriptors of a consumed frame with their
// buffers and gives them back to hardware.
func (d *Dev) recycle(r *rx_ring, nd uint) {
	last := r.next
	for k := uint(0); k < nd; k++ {
		last = r.next
		regs.RxDescriptorAt(r.desc.Data, last).Arm(r.bufs[last].Phys)
		r.next = (r.next + 1) % r.len
	}
	// Re-armed descriptors must be visible before tail moves.
	hw.MemoryBarrier()
	d.set(regs.RDT, uint32(last))
}

// receiveFrame consumes one frame.  Frames with descriptor errors are
// recycled without copying and reported as ErrChecksumOrFrame.
func (d *Dev) receiveFrame(r *rx_ring, dst []byte) (n int, ok bool, err error) {
	nd, errs, n_bytes := r.scan()
	if nd == 0 {
		return
	}
	ok = true
	if errs != 0 {
		d.sw_counters.add(rx_frame_errors, 1)
		d.recycle(r, nd)
		err = ErrChecksumOrFrame
		return
	}
	i := r.next
	for k := uint(0); k < nd; k++ {
		l, _ := regs.RxDescriptorAt(r.desc.Data, i).LoadLength()
		n += copy(dst[n:], r.bufs[i].Data[:l])
		i = (i + 1) % r.len
	}
	if uint(n) < n_bytes {
		d.sw_counters.add(rx_truncated, 1)
	}
	d.sw_counters.add(rx_packets, 1)
	d.sw_counters.add(rx_bytes, uint64(n_bytes))
	d.recycle(r, nd)
	return
}

// receive is a non-blocking check of the receive ring.  It delivers at
// most one good frame into dst and reports whether another completed
// frame is waiting.  Bad frames are dropped silently.
func (d *Dev) receive(dst []byte) (n int, more, got bool, err error) {
	r := &d.rx
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.closed.Load() {
		err = ErrClosed
		return
	}
	for {
		var e error
		n, got, e = d.receiveFrame(r, dst)
		if e == ErrChecksumOrFrame {
			continue
		}
		break
	}
	if got {
		nd, _, _ := r.scan()
		more = nd != 0
	}
	return
}

// rxPending reports whether a completed frame is waiting.
func (d *Dev) rxPending() bool {
	r := &d.rx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.len == 0 {
		return false
	}
	nd, _, _ := r.scan()
	return nd != 0
}
