// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package e1000cmd

import (
	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/elib/hw/pci"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000"
)

func openPci(a pci.BusAddress) (pci.Devicer, *hw.Hugepages, error) {
	p, err := pci.NewSysfsDevice(a)
	if err != nil {
		return nil, nil, err
	}
	return p, &hw.Hugepages{}, nil
}

func list(t *table) (err error) {
	devs, err := pci.DiscoverDevices(e1000.DeviceIDs()...)
	if err != nil {
		return
	}
	for _, d := range devs {
		t.row(d.Addr.String(), d.Config.DeviceID)
	}
	t.flush()
	return
}
