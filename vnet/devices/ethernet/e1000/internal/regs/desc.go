// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regs

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Legacy descriptors.  Both hardware and software access these in DMA
// memory; all access after setup goes through the atomic accessors so
// that loads/stores are neither cached nor reordered.  Hosts are
// little endian like the hardware.
const (
	DescriptorBytes     = 16
	Log2DescriptorAlign = 7
	MaxDescriptorLength = 1<<16 - 1
	MinRingLen          = 8
	MaxRingLen          = 4096
)

// Receive descriptor status bits.
const (
	RxStatusDone        = 1 << 0 // DD
	RxStatusEndOfPacket = 1 << 1 // EOP
	RxStatusIgnoreCsum  = 1 << 2
	RxStatusVlan        = 1 << 3
	RxStatusTcpCsum     = 1 << 5
	RxStatusIpCsum      = 1 << 6
	RxStatusExactMatch  = 1 << 7
)

// Receive descriptor error bits.
const (
	RxErrorCrc      = 1 << 0 // CE
	RxErrorSymbol   = 1 << 1 // SE
	RxErrorSequence = 1 << 2 // SEQ
	RxErrorCarrier  = 1 << 4 // CXE
	RxErrorTcpCsum  = 1 << 5 // TCPE
	RxErrorIpCsum   = 1 << 6 // IPE
	RxErrorData     = 1 << 7 // RXE
)

// Transmit descriptor command bits.
const (
	TxCmdEndOfPacket    = 1 << 0 // EOP
	TxCmdInsertFcs      = 1 << 1 // IFCS
	TxCmdInsertCsum     = 1 << 2 // IC
	TxCmdReportStatus   = 1 << 3 // RS
	TxCmdReportSent     = 1 << 4 // RPS
	TxCmdVlan           = 1 << 6 // VLE
	TxCmdInterruptDelay = 1 << 7 // IDE

	TxStatusDone = 1 << 0 // DD
)

type RxDescriptor struct {
	BufferAddress uint64
	Length        uint16
	Checksum      uint16
	Status        uint8
	Errors        uint8
	Special       uint16
}

type TxDescriptor struct {
	BufferAddress  uint64
	Length         uint16
	ChecksumOffset uint8 // CSO
	Command        uint8
	Status         uint8
	ChecksumStart  uint8 // CSS
	Special        uint16
}

func word(p unsafe.Pointer, o uintptr) *uint32 {
	return (*uint32)(unsafe.Add(p, o))
}

func descriptorAt(ring []byte, i uint) unsafe.Pointer {
	o := i * DescriptorBytes
	if o+DescriptorBytes > uint(len(ring)) {
		panic(fmt.Errorf("descriptor %d outside %d byte ring", i, len(ring)))
	}
	return unsafe.Pointer(&ring[o])
}

// RxDescriptorAt returns descriptor i of ring memory.
func RxDescriptorAt(ring []byte, i uint) *RxDescriptor {
	return (*RxDescriptor)(descriptorAt(ring, i))
}

// TxDescriptorAt returns descriptor i of ring memory.
func TxDescriptorAt(ring []byte, i uint) *TxDescriptor {
	return (*TxDescriptor)(descriptorAt(ring, i))
}

func (d *RxDescriptor) w8() *uint32  { return word(unsafe.Pointer(d), 8) }
func (d *RxDescriptor) w12() *uint32 { return word(unsafe.Pointer(d), 12) }

// Arm gives the descriptor a buffer and clears status for hardware.
func (d *RxDescriptor) Arm(phys uint64) {
	atomic.StoreUint64(&d.BufferAddress, phys)
	atomic.StoreUint32(d.w8(), 0)
	atomic.StoreUint32(d.w12(), 0)
}

// LoadStatus returns status and error bytes as written back by hardware.
func (d *RxDescriptor) LoadStatus() (status, errors uint8) {
	w := atomic.LoadUint32(d.w12())
	return uint8(w), uint8(w >> 8)
}

func (d *RxDescriptor) LoadLength() (length, checksum uint16) {
	w := atomic.LoadUint32(d.w8())
	return uint16(w), uint16(w >> 16)
}

func (d *RxDescriptor) LoadAddress() uint64 { return atomic.LoadUint64(&d.BufferAddress) }

// WriteBack completes the descriptor as hardware does: length first,
// then status (with DD) last.
func (d *RxDescriptor) WriteBack(length, checksum uint16, status, errors uint8, special uint16) {
	atomic.StoreUint32(d.w8(), uint32(length)|uint32(checksum)<<16)
	atomic.StoreUint32(d.w12(), uint32(status)|uint32(errors)<<8|uint32(special)<<16)
}

// Load returns a consistent copy of the descriptor.
func (d *RxDescriptor) Load() (x RxDescriptor) {
	x.BufferAddress = d.LoadAddress()
	x.Length, x.Checksum = d.LoadLength()
	w := atomic.LoadUint32(d.w12())
	x.Status, x.Errors, x.Special = uint8(w), uint8(w>>8), uint16(w>>16)
	return
}

func (d *TxDescriptor) w8() *uint32  { return word(unsafe.Pointer(d), 8) }
func (d *TxDescriptor) w12() *uint32 { return word(unsafe.Pointer(d), 12) }

// Set fills a descriptor for hardware; status is cleared.
func (d *TxDescriptor) Set(phys uint64, length uint16, cso, cmd, css uint8) {
	atomic.StoreUint64(&d.BufferAddress, phys)
	atomic.StoreUint32(d.w8(), uint32(length)|uint32(cso)<<16|uint32(cmd)<<24)
	atomic.StoreUint32(d.w12(), uint32(css)<<8)
}

func (d *TxDescriptor) LoadStatus() uint8 { return uint8(atomic.LoadUint32(d.w12())) }

// SetStatus is hardware status write back; other fields are kept.
func (d *TxDescriptor) SetStatus(status uint8) {
	p := d.w12()
	for {
		w := atomic.LoadUint32(p)
		if atomic.CompareAndSwapUint32(p, w, w&^0xff|uint32(status)) {
			return
		}
	}
}

// Clear zeros the descriptor.
func (d *TxDescriptor) Clear() {
	atomic.StoreUint64(&d.BufferAddress, 0)
	atomic.StoreUint32(d.w8(), 0)
	atomic.StoreUint32(d.w12(), 0)
}

func (d *TxDescriptor) Load() (x TxDescriptor) {
	x.BufferAddress = atomic.LoadUint64(&d.BufferAddress)
	w := atomic.LoadUint32(d.w8())
	x.Length, x.ChecksumOffset, x.Command = uint16(w), uint8(w>>16), uint8(w>>24)
	w = atomic.LoadUint32(d.w12())
	x.Status, x.ChecksumStart, x.Special = uint8(w), uint8(w>>8), uint16(w>>16)
	return
}

func (x RxDescriptor) String() string {
	return fmt.Sprintf("addr 0x%x len %d csum 0x%04x status 0x%02x errors 0x%02x",
		x.BufferAddress, x.Length, x.Checksum, x.Status, x.Errors)
}

func (x TxDescriptor) String() string {
	return fmt.Sprintf("addr 0x%x len %d cmd 0x%02x status 0x%02x css %d cso %d",
		x.BufferAddress, x.Length, x.Command, x.Status, x.ChecksumStart, x.ChecksumOffset)
}
