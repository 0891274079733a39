// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package hw

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	Log2HugepageBytes = 21
	HugepageBytes     = 1 << Log2HugepageBytes
)

// Hugepages allocates DMA memory from pinned 2M hugepages.
// Allocations never cross a hugepage boundary, so each is physically
// contiguous.
type Hugepages struct {
	mu    sync.Mutex
	pages []hugepage
}

type hugepage struct {
	data []byte
	phys uint64
	used uint
}

func (h *Hugepages) newPage() (p hugepage, err error) {
	p.data, err = unix.Mmap(-1, 0, HugepageBytes,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_ANONYMOUS|unix.MAP_HUGETLB|unix.MAP_LOCKED|unix.MAP_POPULATE)
	if err != nil {
		err = fmt.Errorf("mmap hugepage: %v: %w", err, ErrDmaExhausted)
		return
	}
	if p.phys, err = virtToPhys(uintptr(unsafe.Pointer(&p.data[0]))); err != nil {
		unix.Munmap(p.data)
	}
	return
}

// virtToPhys translates via /proc/self/pagemap (needs CAP_SYS_ADMIN).
func virtToPhys(va uintptr) (pa uint64, err error) {
	f, err := os.Open("/proc/self/pagemap")
	if err != nil {
		return
	}
	defer f.Close()
	pageBytes := uintptr(os.Getpagesize())
	var b [8]byte
	if _, err = f.ReadAt(b[:], int64(va/pageBytes)*8); err != nil {
		return
	}
	v := binary.LittleEndian.Uint64(b[:])
	const (
		present = 1 << 63
		pfnMask = 1<<55 - 1
	)
	if v&present == 0 || v&pfnMask == 0 {
		err = fmt.Errorf("pagemap: no physical page for 0x%x", va)
		return
	}
	pa = (v&pfnMask)*uint64(pageBytes) + uint64(va%pageBytes)
	return
}

func (h *Hugepages) DmaAlloc(n, log2Align uint) (m DmaMem, err error) {
	if n > HugepageBytes {
		err = fmt.Errorf("alloc %d bytes exceeds hugepage: %w", n, ErrDmaExhausted)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.pages {
		p := &h.pages[i]
		o := uint(round(uint64(p.used), log2Align))
		if o+n <= HugepageBytes {
			m = DmaMem{Data: p.data[o : o+n : o+n], Phys: p.phys + uint64(o)}
			for j := range m.Data {
				m.Data[j] = 0
			}
			p.used = o + n
			return
		}
	}
	var p hugepage
	if p, err = h.newPage(); err != nil {
		return
	}
	p.used = n
	h.pages = append(h.pages, p)
	m = DmaMem{Data: p.data[:n:n], Phys: p.phys}
	return
}

// DmaFree is a no-op; hugepages are released by Close.
func (h *Hugepages) DmaFree(m DmaMem) {}

func (h *Hugepages) Close() (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.pages {
		if e := unix.Munmap(h.pages[i].data); e != nil && err == nil {
			err = e
		}
	}
	h.pages = nil
	return
}
