// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"fmt"
	"sort"

	"github.com/platinasystems/e1000/elib/hw/pci"
)

type dev_id pci.VendorDeviceID

// PCI dev IDs of parts with the legacy register file and EERD layout.
const (
	dev_id_82542          = 0x1000
	dev_id_82543gc_fiber  = 0x1001
	dev_id_82543gc_copper = 0x1004
	dev_id_82544ei_copper = 0x1008
	dev_id_82544ei_fiber  = 0x1009
	dev_id_82544gc_copper = 0x100c
	dev_id_82544gc_lom    = 0x100d
	dev_id_82540em        = 0x100e
	dev_id_82545em_copper = 0x100f
	dev_id_82546eb_copper = 0x1010
	dev_id_82545em_fiber  = 0x1011
	dev_id_82546eb_fiber  = 0x1012
	dev_id_82540em_lom    = 0x1015
	dev_id_82540ep_lom    = 0x1016
	dev_id_82540ep        = 0x1017
	dev_id_82541ei        = 0x1013
	dev_id_82547ei        = 0x1019
	dev_id_82545gm_copper = 0x1026
	dev_id_82546gb_copper = 0x1079
	dev_id_82541gi        = 0x1076
	dev_id_82541pi        = 0x107c
	dev_id_82547gi        = 0x1075
)

var dev_id_names = map[dev_id]string{
	dev_id_82542:          "82542",
	dev_id_82543gc_fiber:  "82543gc fiber",
	dev_id_82543gc_copper: "82543gc copper",
	dev_id_82544ei_copper: "82544ei copper",
	dev_id_82544ei_fiber:  "82544ei fiber",
	dev_id_82544gc_copper: "82544gc copper",
	dev_id_82544gc_lom:    "82544gc lom",
	dev_id_82540em:        "82540em",
	dev_id_82545em_copper: "82545em copper",
	dev_id_82546eb_copper: "82546eb copper",
	dev_id_82545em_fiber:  "82545em fiber",
	dev_id_82546eb_fiber:  "82546eb fiber",
	dev_id_82540em_lom:    "82540em lom",
	dev_id_82540ep_lom:    "82540ep lom",
	dev_id_82540ep:        "82540ep",
	dev_id_82541ei:        "82541ei",
	dev_id_82547ei:        "82547ei",
	dev_id_82545gm_copper: "82545gm copper",
	dev_id_82546gb_copper: "82546gb copper",
	dev_id_82541gi:        "82541gi",
	dev_id_82541pi:        "82541pi",
	dev_id_82547gi:        "82547gi",
}

func (d dev_id) String() (v string) {
	var ok bool
	if v, ok = dev_id_names[d]; !ok {
		v = fmt.Sprintf("unknown 0x%04x", uint16(d))
	}
	return
}

// Supported reports whether the driver handles the given function.
func Supported(id pci.DeviceID) bool {
	_, ok := dev_id_names[dev_id(id.Device)]
	return id.Vendor == pci.Intel && ok
}

// DeviceIDs lists all supported functions for discovery.
func DeviceIDs() (ids []pci.DeviceID) {
	for id := range dev_id_names {
		ids = append(ids, pci.DeviceID{Vendor: pci.Intel, Device: pci.VendorDeviceID(id)})
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Device < ids[j].Device })
	return
}
