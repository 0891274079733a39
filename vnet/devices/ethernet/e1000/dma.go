// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"fmt"
	"sync"

	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
)

type dma_regs struct {
	base_address reg
	n_bytes      reg
	head_index   reg
	tail_index   reg
	delay        reg
}

var (
	tx_dma_regs = dma_regs{regs.TDBAL, regs.TDLEN, regs.TDH, regs.TDT, regs.TIDV}
	rx_dma_regs = dma_regs{regs.RDBAL, regs.RDLEN, regs.RDH, regs.RDT, regs.RDTR}
)

// A descriptor ring and one DMA buffer per descriptor.
type dma_ring struct {
	// One writer of the software index at a time.
	mu sync.Mutex

	desc hw.DmaMem
	len  uint

	bufs      []hw.DmaMem
	buf_bytes uint

	r *dma_regs
}

type tx_ring struct {
	dma_ring
	// Oldest descriptor not yet seen done by hardware.
	head uint
	// Next descriptor to fill.
	tail uint
}

type rx_ring struct {
	dma_ring
	// Next descriptor hardware completes.
	next uint
}

func (r *dma_ring) alloc(dma hw.DmaAllocator, n, buf_bytes uint) (err error) {
	r.len = n
	r.buf_bytes = buf_bytes
	if r.desc, err = dma.DmaAlloc(n*regs.DescriptorBytes, regs.Log2DescriptorAlign); err != nil {
		return
	}
	for i := range r.desc.Data {
		r.desc.Data[i] = 0
	}
	r.bufs = make([]hw.DmaMem, 0, n)
	for i := uint(0); i < n; i++ {
		var b hw.DmaMem
		if b, err = dma.DmaAlloc(buf_bytes, 6); err != nil {
			return
		}
		r.bufs = append(r.bufs, b)
	}
	return
}

func (r *dma_ring) free(dma hw.DmaAllocator) {
	for _, b := range r.bufs {
		dma.DmaFree(b)
	}
	r.bufs = nil
	if r.desc.Data != nil {
		dma.DmaFree(r.desc)
		r.desc = hw.DmaMem{}
	}
	r.len = 0
}

// Program ring base and length; ring starts empty.
func (d *Dev) dma_init(r *dma_ring) {
	d.set(r.r.base_address, uint32(r.desc.Phys))
	d.set(r.r.base_address+4, uint32(r.desc.Phys>>32))
	d.set(r.r.n_bytes, uint32(r.len*regs.DescriptorBytes))
	d.set(r.r.head_index, 0)
	d.set(r.r.tail_index, 0)
}

// initDescriptors allocates both rings and their buffers and programs
// the ring registers.  Transmit starts empty (head == tail == 0); every
// receive descriptor is armed with its own buffer.  Any allocation
// failure is fatal to bring up.
func (d *Dev) initDescriptors() (err error) {
	d.tx.r = &tx_dma_regs
	d.rx.r = &rx_dma_regs
	defer func() {
		if err != nil {
			d.free_rings()
			err = fmt.Errorf("%w: %w", ErrDmaAllocationFailed, err)
		}
	}()
	chunk := d.TxBufferBytes
	if chunk > regs.MaxDescriptorLength {
		chunk = regs.MaxDescriptorLength
	}
	if err = d.tx.alloc(d.dma, d.TxRingLen, chunk); err != nil {
		return fmt.Errorf("tx ring: %w", err)
	}
	if err = d.rx.alloc(d.dma, d.RxRingLen, d.RxBufferBytes); err != nil {
		return fmt.Errorf("rx ring: %w", err)
	}

	d.tx.head, d.tx.tail = 0, 0
	d.dma_init(&d.tx.dma_ring)

	for i := uint(0); i < d.rx.len; i++ {
		regs.RxDescriptorAt(d.rx.desc.Data, i).Arm(d.rx.bufs[i].Phys)
	}
	d.rx.next = 0
	d.dma_init(&d.rx.dma_ring)
	hw.MemoryBarrier()
	return
}

func (d *Dev) free_rings() {
	d.tx.mu.Lock()
	d.tx.free(d.dma)
	d.tx.mu.Unlock()
	d.rx.mu.Lock()
	d.rx.free(d.dma)
	d.rx.mu.Unlock()
}

func (d *Dev) enableRings() {
	d.set(regs.TIDV, uint32(d.TxInterruptDelay))
	d.set(regs.TIPG, regs.TipgDefault)
	d.set(regs.TCTL, regs.TctlEnable|regs.TctlPadShort|regs.TctlCollisionThresh|regs.TctlCollisionDist)

	bsize, _ := regs.RctlBufferSize(d.RxBufferBytes)
	v := uint32(regs.RctlEnable | regs.RctlBroadcast | regs.RctlStripCrc | regs.RctlMinThreshHalf)
	v |= bsize
	if d.RxBufferBytes > 2048 {
		v |= regs.RctlLongPacket
	}
	d.set(regs.RDTR, uint32(d.RxInterruptDelay))
	d.set(regs.RCTL, v)

	// Hand all but one receive descriptor to hardware.
	d.set(regs.RDT, uint32(d.rx.len-1))
	d.write_flush()
}
