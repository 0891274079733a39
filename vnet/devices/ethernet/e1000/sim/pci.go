// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"fmt"

	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/elib/hw/pci"
)

// 82540EM as found in most hypervisors.
var DefaultDeviceID = pci.DeviceID{Vendor: pci.Intel, Device: 0x100e}

// PciDevice presents a Device as a PCI function.
type PciDevice struct {
	pci.Device
	Sim *Device

	// Function has no memory BAR.
	NoBar bool

	Opened, Closed bool
}

// Pci returns a PCI function with BAR0 backed by d.
func (d *Device) Pci(a pci.BusAddress) *PciDevice {
	p := &PciDevice{Sim: d}
	p.Addr = a
	p.Config.DeviceID = DefaultDeviceID
	p.Config.Class = pci.Network_Ethernet
	p.Config.Status = pci.StatusCapabilityList
	p.Resources = []pci.Resource{{Index: 0, Base: 0xfebc0000, Size: 0x20000}}
	return p
}

func (p *PciDevice) GetDevice() *pci.Device { return &p.Device }

func (p *PciDevice) Open() error {
	if p.Config.Command.Valid() {
		p.Config.Command |= pci.MemoryEnable | pci.BusMasterEnable
	}
	p.Opened = true
	return nil
}

func (p *PciDevice) Close() error {
	p.Closed = true
	return nil
}

func (p *PciDevice) MapResource(bar uint) (hw.Regs, error) {
	if bar != 0 || p.NoBar {
		return nil, fmt.Errorf("%s: resource%d: %w", &p.Addr, bar, pci.ErrNotMapped)
	}
	return p.Sim, nil
}
