// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regs

import (
	"testing"
	"unsafe"

	"github.com/platinasystems/e1000/elib/hw"
)

func TestRegisterOffsets(t *testing.T) {
	for _, x := range []struct {
		name string
		r    hw.Reg32
		want uint
	}{
		{"CTRL", CTRL, 0x0},
		{"STATUS", STATUS, 0x8},
		{"EECD", EECD, 0x10},
		{"EERD", EERD, 0x14},
		{"CTRL_EXT", CTRL_EXT, 0x18},
		{"ICR", ICR, 0xc0},
		{"ITR", ITR, 0xc4},
		{"ICS", ICS, 0xc8},
		{"IMS", IMS, 0xd0},
		{"IMC", IMC, 0xd8},
		{"RCTL", RCTL, 0x100},
		{"TCTL", TCTL, 0x400},
		{"TIPG", TIPG, 0x410},
		{"RDBAL", RDBAL, 0x2800},
		{"RDBAH", RDBAH, 0x2804},
		{"RDLEN", RDLEN, 0x2808},
		{"RDH", RDH, 0x2810},
		{"RDT", RDT, 0x2818},
		{"RDTR", RDTR, 0x2820},
		{"TDBAL", TDBAL, 0x3800},
		{"TDBAH", TDBAH, 0x3804},
		{"TDLEN", TDLEN, 0x3808},
		{"TDH", TDH, 0x3810},
		{"TDT", TDT, 0x3818},
		{"TIDV", TIDV, 0x3820},
		{"CRCERRS", CRCERRS, 0x4000},
		{"MPC", MPC, 0x4010},
		{"GPRC", GPRC, 0x4074},
		{"GPTC", GPTC, 0x4080},
		{"TPT", TPT, 0x40d4},
		{"MTA", MTA, 0x5200},
		{"RAL0", RAL0, 0x5400},
		{"RAH0", RAH0, 0x5404},
	} {
		if got := x.r.Offset(); got != x.want {
			t.Errorf("%s: got 0x%x want 0x%x", x.name, got, x.want)
		}
	}
}

func TestDescriptorLayout(t *testing.T) {
	var r RxDescriptor
	var x TxDescriptor
	if got := unsafe.Sizeof(r); got != DescriptorBytes {
		t.Errorf("rx size: got %d want %d", got, DescriptorBytes)
	}
	if got := unsafe.Sizeof(x); got != DescriptorBytes {
		t.Errorf("tx size: got %d want %d", got, DescriptorBytes)
	}
	for _, c := range []struct {
		name      string
		got, want uintptr
	}{
		{"rx length", unsafe.Offsetof(r.Length), 8},
		{"rx checksum", unsafe.Offsetof(r.Checksum), 10},
		{"rx status", unsafe.Offsetof(r.Status), 12},
		{"rx errors", unsafe.Offsetof(r.Errors), 13},
		{"rx special", unsafe.Offsetof(r.Special), 14},
		{"tx length", unsafe.Offsetof(x.Length), 8},
		{"tx cso", unsafe.Offsetof(x.ChecksumOffset), 10},
		{"tx cmd", unsafe.Offsetof(x.Command), 11},
		{"tx status", unsafe.Offsetof(x.Status), 12},
		{"tx css", unsafe.Offsetof(x.ChecksumStart), 13},
		{"tx special", unsafe.Offsetof(x.Special), 14},
	} {
		if c.got != c.want {
			t.Errorf("%s: got %d want %d", c.name, c.got, c.want)
		}
	}
}

func TestDescriptorAccess(t *testing.T) {
	ring := make([]byte, 2*DescriptorBytes)
	tx := TxDescriptorAt(ring, 1)
	tx.Set(0x11223344, 60, 3, TxCmdEndOfPacket|TxCmdReportStatus, 2)
	b := ring[DescriptorBytes:]
	if got, want := b[8], byte(60); got != want {
		t.Errorf("length byte: got %d want %d", got, want)
	}
	if got, want := b[11], byte(TxCmdEndOfPacket|TxCmdReportStatus); got != want {
		t.Errorf("cmd byte: got 0x%x want 0x%x", got, want)
	}
	tx.SetStatus(TxStatusDone)
	if got := tx.Load(); got.Status != TxStatusDone || got.ChecksumStart != 2 || got.ChecksumOffset != 3 {
		t.Errorf("after write back: got %v", got)
	}

	rx := RxDescriptorAt(ring, 0)
	rx.Arm(0x1000)
	if s, e := rx.LoadStatus(); s != 0 || e != 0 {
		t.Errorf("armed: got status 0x%x errors 0x%x", s, e)
	}
	rx.WriteBack(64, 0xbeef, RxStatusDone|RxStatusEndOfPacket, RxErrorCrc, 0)
	if got, want := ring[12], byte(RxStatusDone|RxStatusEndOfPacket); got != want {
		t.Errorf("status byte: got 0x%x want 0x%x", got, want)
	}
	if got, want := ring[13], byte(RxErrorCrc); got != want {
		t.Errorf("errors byte: got 0x%x want 0x%x", got, want)
	}
	if l, c := rx.LoadLength(); l != 64 || c != 0xbeef {
		t.Errorf("length: got %d 0x%x want 64 0xbeef", l, c)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("descriptor past end: no panic")
		}
	}()
	RxDescriptorAt(ring, 2)
}

func TestBufferSize(t *testing.T) {
	for _, n := range []uint{256, 512, 1024, 2048, 4096, 8192, 16384} {
		v, ok := RctlBufferSize(n)
		if !ok {
			t.Errorf("%d: not supported", n)
			continue
		}
		if got := RxBufferSize(v); got != n {
			t.Errorf("%d: got %d", n, got)
		}
	}
	if _, ok := RctlBufferSize(1500); ok {
		t.Errorf("1500: got ok")
	}
}
