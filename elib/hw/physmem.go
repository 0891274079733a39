// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hw

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrDmaExhausted = errors.New("dma memory exhausted")

// DmaMem is a physically contiguous, pinned DMA buffer.
type DmaMem struct {
	Data []byte
	Phys uint64
}

func (m DmaMem) Len() uint { return uint(len(m.Data)) }

func (m DmaMem) String() string {
	return fmt.Sprintf("{0x%x-0x%x}", m.Phys, m.Phys+uint64(len(m.Data))-1)
}

// DmaAllocator hands out zeroed DMA memory.
type DmaAllocator interface {
	DmaAlloc(n, log2Align uint) (DmaMem, error)
	DmaFree(m DmaMem)
}

// PhysMem resolves a bus address to the memory behind it.
// Device models use it to perform DMA.
type PhysMem interface {
	PhysSlice(phys uint64, n uint) ([]byte, bool)
}

// Heap is a DMA allocator over ordinary process memory. Bus addresses
// are synthetic and only meaningful to devices sharing the heap
// (e.g. a device model).
type Heap struct {
	// Bus address of first allocation; defaults to DefaultHeapBase.
	Base uint64
	// Maximum number of bytes outstanding; zero means no limit.
	Limit uint

	mu    sync.Mutex
	next  uint64
	inUse uint
	elts  []heapElt
}

const DefaultHeapBase = 0x10000000

type heapElt struct {
	phys uint64
	data []byte
}

func round(x uint64, log2Align uint) uint64 {
	m := uint64(1)<<log2Align - 1
	return (x + m) &^ m
}

func (h *Heap) DmaAlloc(n, log2Align uint) (m DmaMem, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Limit != 0 && h.inUse+n > h.Limit {
		err = fmt.Errorf("alloc %d bytes, %d of %d in use: %w", n, h.inUse, h.Limit, ErrDmaExhausted)
		return
	}
	if h.next == 0 {
		h.next = h.Base
		if h.next == 0 {
			h.next = DefaultHeapBase
		}
	}
	phys := round(h.next, log2Align)
	// Leave a gap so that an overrun never lands in the next buffer.
	h.next = round(phys+uint64(n)+1, 6)
	m = DmaMem{Data: make([]byte, n), Phys: phys}
	h.elts = append(h.elts, heapElt{phys: phys, data: m.Data})
	h.inUse += n
	return
}

func (h *Heap) DmaFree(m DmaMem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.find(m.Phys)
	if i < 0 || h.elts[i].phys != m.Phys {
		panic(fmt.Errorf("hw: free of unknown dma memory %v", m))
	}
	h.inUse -= uint(len(h.elts[i].data))
	h.elts = append(h.elts[:i], h.elts[i+1:]...)
}

// find returns the index of the element containing phys or -1.
// Elements are sorted since bus addresses only increase.
func (h *Heap) find(phys uint64) int {
	i := sort.Search(len(h.elts), func(i int) bool { return h.elts[i].phys > phys }) - 1
	if i < 0 {
		return -1
	}
	e := &h.elts[i]
	if phys >= e.phys+uint64(len(e.data)) && len(e.data) > 0 {
		return -1
	}
	return i
}

func (h *Heap) PhysSlice(phys uint64, n uint) (b []byte, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.find(phys)
	if i < 0 {
		return
	}
	e := &h.elts[i]
	o := phys - e.phys
	if o+uint64(n) > uint64(len(e.data)) {
		return
	}
	return e.data[o : o+uint64(n)], true
}

// InUse returns the number of allocated bytes.
func (h *Heap) InUse() uint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inUse
}
