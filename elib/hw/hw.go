// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Memory mapped register read/write
package hw

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Regs is a device register window addressed by byte offset.
// Loads and stores are single 32 bit bus transactions.
type Regs interface {
	Load32(offset uint) uint32
	Store32(offset uint, v uint32)
}

// Mem is a memory mapped register window, e.g. a mmapped PCI BAR.
type Mem []byte

func (m Mem) addr(o uint) *uint32 {
	if o&3 != 0 || o+4 > uint(len(m)) {
		panic(fmt.Errorf("hw: register offset 0x%x outside %d byte window", o, len(m)))
	}
	return (*uint32)(unsafe.Pointer(&m[o]))
}

// Atomic access keeps the compiler from caching, merging or
// reordering register accesses.
func (m Mem) Load32(o uint) uint32     { return atomic.LoadUint32(m.addr(o)) }
func (m Mem) Store32(o uint, v uint32) { atomic.StoreUint32(m.addr(o), v) }

var barrier uint32

// MemoryBarrier orders all prior memory writes (e.g. DMA descriptors)
// before any later register store.
func MemoryBarrier() { atomic.AddUint32(&barrier, 1) }

func CheckRegAddr(name string, got, want uint) {
	if got != want {
		panic(fmt.Errorf("%s got 0x%x != want 0x%x", name, got, want))
	}
}

// Reg32 is a 32 bit register at a fixed offset.
type Reg32 uint

func (r Reg32) Offset() uint         { return uint(r) }
func (r Reg32) Get(w Regs) uint32    { return w.Load32(uint(r)) }
func (r Reg32) Set(w Regs, v uint32) { w.Store32(uint(r), v) }
func (r Reg32) String() string       { return fmt.Sprintf("0x%05x", uint(r)) }
func (r Reg32) Add(i uint) Reg32     { return Reg32(uint(r) + 4*i) }
func (r Reg32) Get64(w Regs) (v uint64) {
	v = uint64(w.Load32(uint(r)))
	v |= uint64(w.Load32(uint(r)+4)) << 32
	return
}
func (r Reg32) Set64(w Regs, v uint64) {
	w.Store32(uint(r), uint32(v))
	w.Store32(uint(r)+4, uint32(v>>32))
}
