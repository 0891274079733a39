// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Generic devices on PCI bus.
package pci

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/platinasystems/e1000/elib/hw"
)

var ErrNotMapped = errors.New("resource not mapped")

type Command uint16

const (
	IOEnable Command = 1 << iota
	MemoryEnable
	BusMasterEnable
	SpecialCycles
	WriteInvalidate
	VgaPaletteSnoop
	Parity
	AddressDataStepping
	SERR
	BackToBackWrite
	INTxEmulationDisable
)

var commandNames = [...]string{
	"io", "memory", "bus-master", "special-cycles", "write-invalidate",
	"vga-palette-snoop", "parity", "address-data-stepping", "serr",
	"back-to-back-write", "intx-disable",
}

func (c Command) String() string {
	var s []string
	for i, n := range commandNames {
		if c&(1<<uint(i)) != 0 {
			s = append(s, n)
		}
	}
	return "{" + strings.Join(s, ", ") + "}"
}

type Status uint16

const (
	StatusInterrupt      Status = 1 << 3
	StatusCapabilityList Status = 1 << 4
	StatusMasterAbort    Status = 1 << 13
	StatusSystemError    Status = 1 << 14
	StatusParityError    Status = 1 << 15
)

// All ones is what a read from a missing (or surprise removed)
// function returns.
const allOnes = 0xffff

func (s Status) Valid() bool  { return s != allOnes }
func (c Command) Valid() bool { return c != allOnes }

// Device/vendor ID from PCI config space.
type VendorID uint16
type VendorDeviceID uint16

func (d VendorDeviceID) String() string { return fmt.Sprintf("0x%04x", uint16(d)) }

// Vendor/Device pair
type DeviceID struct {
	Vendor VendorID
	Device VendorDeviceID
}

func (i DeviceID) String() string { return fmt.Sprintf("%v:%v", i.Vendor, i.Device) }

// First 16 bytes of config space; the standard header layout.
type ConfigHeader struct {
	DeviceID
	Command
	Status
	Revision     uint8
	Class        DeviceClass
	CacheSize    uint8
	LatencyTimer uint8
	HeaderType   uint8
	Bist         uint8
}

const ConfigHeaderBytes = 16

// ParseConfigHeader decodes the little endian config space header.
func ParseConfigHeader(b []byte) (h ConfigHeader, err error) {
	if len(b) < ConfigHeaderBytes {
		err = fmt.Errorf("config header: short read %d bytes", len(b))
		return
	}
	le := binary.LittleEndian
	h.Vendor = VendorID(le.Uint16(b[0:]))
	h.Device = VendorDeviceID(le.Uint16(b[2:]))
	h.Command = Command(le.Uint16(b[4:]))
	h.Status = Status(le.Uint16(b[6:]))
	h.Revision = b[8]
	// b[9] is programming interface; [11:10] class/sub class.
	h.Class = DeviceClass(le.Uint16(b[10:]))
	h.CacheSize = b[12]
	h.LatencyTimer = b[13]
	h.HeaderType = b[14]
	h.Bist = b[15]
	return
}

type BusAddress struct {
	Domain        uint16
	Bus, Slot, Fn uint8
}

func (a BusAddress) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%01x", a.Domain, a.Bus, a.Slot, a.Fn)
}

// ParseBusAddress accepts DDDD:BB:SS.F or BB:SS.F.
func ParseBusAddress(s string) (a BusAddress, err error) {
	var d, b, sl, f uint
	if _, err = fmt.Sscanf(s, "%x:%x:%x.%x", &d, &b, &sl, &f); err != nil {
		d = 0
		if _, err = fmt.Sscanf(s, "%x:%x.%x", &b, &sl, &f); err != nil {
			err = fmt.Errorf("%s: invalid pci address", s)
			return
		}
	}
	if d > 0xffff || b > 0xff || sl > 0x1f || f > 7 {
		err = fmt.Errorf("%s: pci address out of range", s)
		return
	}
	a = BusAddress{Domain: uint16(d), Bus: uint8(b), Slot: uint8(sl), Fn: uint8(f)}
	return
}

type Resource struct {
	Index      uint32 // index of BAR
	Base, Size uint64
	Mem        hw.Mem
}

func (r Resource) String() string {
	return fmt.Sprintf("{%d: 0x%x-0x%x}", r.Index, r.Base, r.Base+r.Size-1)
}

type Device struct {
	Addr      BusAddress
	Config    ConfigHeader
	Resources []Resource
}

func (d *Device) String() string {
	return fmt.Sprintf("%s %v %v", &d.Addr, d.Config.Vendor, d.Config.Device)
}

func (d *Device) VendorID() VendorID       { return d.Config.Vendor }
func (d *Device) DeviceID() VendorDeviceID { return d.Config.Device }

// Devicer is implemented by each way of reaching a PCI function:
// the linux sysfs backend or a device model.
type Devicer interface {
	GetDevice() *Device
	// Open makes the function usable by a userspace driver
	// (memory decode and bus mastering enabled).
	Open() error
	Close() error
	// MapResource returns the register window of the given BAR.
	MapResource(bar uint) (hw.Regs, error)
}
