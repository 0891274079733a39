// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import "fmt"

// Base class and sub class from config space.
type DeviceClass uint16

const (
	Network_Ethernet   DeviceClass = 0x0200
	Network_Token_Ring DeviceClass = 0x0201
	Network_FDDI       DeviceClass = 0x0202
	Network_ATM        DeviceClass = 0x0203
	Network_Other      DeviceClass = 0x0280
)

var deviceClassNames = map[DeviceClass]string{
	Network_Ethernet:   "ethernet",
	Network_Token_Ring: "token ring",
	Network_FDDI:       "fddi",
	Network_ATM:        "atm",
	Network_Other:      "network",
}

func (c DeviceClass) String() string {
	if s, ok := deviceClassNames[c]; ok {
		return s
	}
	return fmt.Sprintf("class 0x%04x", uint16(c))
}

const (
	Broadcom VendorID = 0x14e4
	Intel    VendorID = 0x8086
)

func (v VendorID) String() string {
	switch v {
	case Intel:
		return "intel"
	case Broadcom:
		return "broadcom"
	}
	return fmt.Sprintf("0x%04x", uint16(v))
}
