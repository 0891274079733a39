// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs describes the legacy 8254x register file and DMA
// descriptor formats shared by the e1000 driver and its device model.
package regs

import (
	"unsafe"

	"github.com/platinasystems/e1000/elib/hw"
)

type reg uint32

type dma_regs struct {
	// [31:4] 16 byte aligned (driver uses 128).
	base_address_lo reg
	base_address_hi reg

	// [19:7] ring length in bytes, multiple of 128.
	n_descriptor_bytes reg
	_                  reg

	head_index reg
	_          reg
	tail_index reg
	_          reg

	// [15:0] rx/tx interrupt delay in 1.024us units.
	// [31] rx flush partial descriptor block.
	interrupt_delay reg
}

// Register file as it appears in BAR0.
type layout struct {
	/* [0] full duplex
	[5] auto speed detection enable
	[6] set link up
	[26] device reset (self clearing)
	[31] phy reset */
	control reg
	_       [0x8 - 0x4]byte

	/* [0] full duplex
	[1] link up
	[3:2] function id
	[4] tx paused
	[7:6] speed 0 10M, 1 100M, 2/3 1G */
	status reg
	_      [0x10 - 0xc]byte

	/* [0] eeprom clock
	[1] eeprom chip select
	[2] data in
	[3] data out
	[6] eeprom request
	[7] eeprom grant
	[8] eeprom present */
	eeprom_control reg

	/* [0] start read
	[4] done
	[15:8] word address
	[31:16] data */
	eeprom_read reg

	extended_control reg
	_                [0xc0 - 0x1c]byte

	// See Icr* bits.  Reads clear.
	interrupt_cause reg
	// [15:0] minimum inter interrupt interval in 256ns units.
	interrupt_throttle reg
	interrupt_set      reg
	_                  reg
	// Write 1 to set bits in interrupt mask.
	interrupt_mask_set reg
	_                  reg
	// Write 1 to clear bits in interrupt mask.
	interrupt_mask_clear reg
	_                    [0x100 - 0xdc]byte

	rx_control reg
	_          [0x400 - 0x104]byte

	tx_control reg
	_          [0x410 - 0x404]byte

	/* [9:0] ipg transmit time
	[19:10] ipg receive time 1
	[29:20] ipg receive time 2 */
	tx_ipg reg
	_      [0x2800 - 0x414]byte

	rx_dma dma_regs
	_      [0x3800 - 0x2824]byte

	tx_dma dma_regs
	_      [0x4000 - 0x3824]byte

	// Statistics, all clear on read.
	stats [64]reg
	_     [0x5200 - 0x4100]byte

	// Multicast hash table.
	multicast_table [128]reg

	rx_address [16]struct {
		lo reg
		// [15:0] address bytes 5:4
		// [31] address valid
		hi reg
	}
}

var l layout

const (
	CTRL     = hw.Reg32(unsafe.Offsetof(l.control))
	STATUS   = hw.Reg32(unsafe.Offsetof(l.status))
	EECD     = hw.Reg32(unsafe.Offsetof(l.eeprom_control))
	EERD     = hw.Reg32(unsafe.Offsetof(l.eeprom_read))
	CTRL_EXT = hw.Reg32(unsafe.Offsetof(l.extended_control))
	ICR      = hw.Reg32(unsafe.Offsetof(l.interrupt_cause))
	ITR      = hw.Reg32(unsafe.Offsetof(l.interrupt_throttle))
	ICS      = hw.Reg32(unsafe.Offsetof(l.interrupt_set))
	IMS      = hw.Reg32(unsafe.Offsetof(l.interrupt_mask_set))
	IMC      = hw.Reg32(unsafe.Offsetof(l.interrupt_mask_clear))
	RCTL     = hw.Reg32(unsafe.Offsetof(l.rx_control))
	TCTL     = hw.Reg32(unsafe.Offsetof(l.tx_control))
	TIPG     = hw.Reg32(unsafe.Offsetof(l.tx_ipg))

	rx = unsafe.Offsetof(l.rx_dma)
	tx = unsafe.Offsetof(l.tx_dma)

	RDBAL = hw.Reg32(rx + unsafe.Offsetof(l.rx_dma.base_address_lo))
	RDBAH = hw.Reg32(rx + unsafe.Offsetof(l.rx_dma.base_address_hi))
	RDLEN = hw.Reg32(rx + unsafe.Offsetof(l.rx_dma.n_descriptor_bytes))
	RDH   = hw.Reg32(rx + unsafe.Offsetof(l.rx_dma.head_index))
	RDT   = hw.Reg32(rx + unsafe.Offsetof(l.rx_dma.tail_index))
	RDTR  = hw.Reg32(rx + unsafe.Offsetof(l.rx_dma.interrupt_delay))

	TDBAL = hw.Reg32(tx + unsafe.Offsetof(l.tx_dma.base_address_lo))
	TDBAH = hw.Reg32(tx + unsafe.Offsetof(l.tx_dma.base_address_hi))
	TDLEN = hw.Reg32(tx + unsafe.Offsetof(l.tx_dma.n_descriptor_bytes))
	TDH   = hw.Reg32(tx + unsafe.Offsetof(l.tx_dma.head_index))
	TDT   = hw.Reg32(tx + unsafe.Offsetof(l.tx_dma.tail_index))
	TIDV  = hw.Reg32(tx + unsafe.Offsetof(l.tx_dma.interrupt_delay))

	STATS = hw.Reg32(unsafe.Offsetof(l.stats))
	MTA   = hw.Reg32(unsafe.Offsetof(l.multicast_table))
	RAL0  = hw.Reg32(unsafe.Offsetof(l.rx_address))
	RAH0  = RAL0 + 4

	// Size of register window used by driver.
	WindowBytes = 0x20000
	NMta        = 128
)

// Statistics registers.
const (
	CRCERRS  = STATS + 0x00 // crc errors
	ALGNERRC = STATS + 0x04
	SYMERRS  = STATS + 0x08
	RXERRC   = STATS + 0x0c
	MPC      = STATS + 0x10 // missed packets
	COLC     = STATS + 0x28
	RLEC     = STATS + 0x40 // receive length errors
	GPRC     = STATS + 0x74 // good packets received
	BPRC     = STATS + 0x78
	MPRC     = STATS + 0x7c
	GPTC     = STATS + 0x80 // good packets transmitted
	GORCL    = STATS + 0x88
	GORCH    = STATS + 0x8c
	GOTCL    = STATS + 0x90
	GOTCH    = STATS + 0x94
	RNBC     = STATS + 0xa0 // receive no buffers
	RUC      = STATS + 0xa4
	ROC      = STATS + 0xac
	TPR      = STATS + 0xd0
	TPT      = STATS + 0xd4
)

const (
	CtrlFullDuplex = 1 << 0
	CtrlAsde       = 1 << 5
	CtrlSetLinkUp  = 1 << 6
	CtrlReset      = 1 << 26
	CtrlPhyReset   = 1 << 31

	StatusFullDuplex = 1 << 0
	StatusLinkUp     = 1 << 1
	StatusSpeedShift = 6
	StatusSpeedMask  = 3 << StatusSpeedShift

	EecdRequest = 1 << 6
	EecdGrant   = 1 << 7
	EecdPresent = 1 << 8

	EerdStart     = 1 << 0
	EerdDone      = 1 << 4
	EerdAddrShift = 8
	EerdAddrMask  = 0xff << EerdAddrShift
	EerdDataShift = 16

	// Words addressable through EERD.
	EepromWords = 1 << 8
)

// Interrupt causes as found in ICR/ICS/IMS/IMC.
const (
	IcrTxDone        = 1 << 0 // TXDW
	IcrTxQueueEmpty  = 1 << 1 // TXQE
	IcrLinkChange    = 1 << 2 // LSC
	IcrRxSequence    = 1 << 3 // RXSEQ
	IcrRxMinThresh   = 1 << 4 // RXDMT0
	IcrRxOverrun     = 1 << 6 // RXO
	IcrRxTimer       = 1 << 7 // RXT0
	IcrAll           = 0x1ffff
	IcrDriverDefault = IcrTxDone | IcrLinkChange | IcrRxMinThresh | IcrRxOverrun | IcrRxTimer
)

const (
	RctlEnable           = 1 << 1
	RctlStoreBadPacket   = 1 << 2
	RctlUnicastPromisc   = 1 << 3
	RctlMulticastPromisc = 1 << 4
	RctlLongPacket       = 1 << 5
	RctlLoopbackShift    = 6
	RctlLoopbackMask     = 3 << RctlLoopbackShift
	RctlLoopbackMac      = 1 << RctlLoopbackShift
	RctlMinThreshHalf    = 0 << 8
	RctlBroadcast        = 1 << 15
	RctlBsizeShift       = 16
	RctlBsizeMask        = 3 << RctlBsizeShift
	RctlBsizeExtension   = 1 << 25
	RctlStripCrc         = 1 << 26

	TctlEnable          = 1 << 1
	TctlPadShort        = 1 << 3
	TctlCtShift         = 4
	TctlColdShift       = 12
	TctlCollisionThresh = 0xf << TctlCtShift
	TctlCollisionDist   = 0x40 << TctlColdShift

	// IPGT 10, IPGR1 8, IPGR2 6 for copper.
	TipgDefault = 10 | 8<<10 | 6<<20

	RahAddressValid = 1 << 31
)

// RctlBufferSize returns RCTL buffer size bits for a supported
// receive buffer size.
func RctlBufferSize(n uint) (v uint32, ok bool) {
	ok = true
	switch n {
	case 2048:
		v = 0 << RctlBsizeShift
	case 1024:
		v = 1 << RctlBsizeShift
	case 512:
		v = 2 << RctlBsizeShift
	case 256:
		v = 3 << RctlBsizeShift
	case 16384:
		v = 1<<RctlBsizeShift | RctlBsizeExtension
	case 8192:
		v = 2<<RctlBsizeShift | RctlBsizeExtension
	case 4096:
		v = 3<<RctlBsizeShift | RctlBsizeExtension
	default:
		ok = false
	}
	return
}

// RxBufferSize is the inverse of RctlBufferSize.
func RxBufferSize(rctl uint32) uint {
	n := uint(2048) >> ((rctl & RctlBsizeMask) >> RctlBsizeShift)
	if rctl&RctlBsizeExtension != 0 {
		n <<= 4
	}
	return n
}
