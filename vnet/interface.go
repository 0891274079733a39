// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"errors"
	"fmt"
	"net"

	"github.com/platinasystems/e1000/vnet/ethernet"
)

var ErrNotSupported = errors.New("not supported")

// Interface is the capability set a network stack consumes from a
// device driver.  Each device class provides its own implementation.
type Interface interface {
	// Stable driver assigned identifier.
	Name() string
	// Link state as reported by hardware.
	IsUp() bool
	// Copy of the station address.
	HardwareAddress() ethernet.Address
	// Copy of addresses bound by the network stack.
	Addresses() []BindAddress
	SetAddresses(as []BindAddress)
	// Read receives one frame into b returning bytes copied and
	// whether another frame is already waiting.
	Read(b []byte) (n int, more bool, err error)
	// Write queues one frame for transmit.
	Write(b []byte) (n int, err error)
}

// BindAddress is an address/prefix bound to an interface.
type BindAddress struct {
	net.IPNet
}

func ParseBindAddress(s string) (a BindAddress, err error) {
	ip, n, err := net.ParseCIDR(s)
	if err != nil {
		return
	}
	a.IP = ip
	a.Mask = n.Mask
	return
}

func (a BindAddress) Equal(b BindAddress) bool {
	return a.IP.Equal(b.IP) && a.Mask.String() == b.Mask.String()
}

// Interface can loopback at MAC or PHY.
type IfLoopbackType int

const (
	IfLoopbackNone IfLoopbackType = iota
	IfLoopbackMac
	IfLoopbackPhy
)

var ifLoopbackNames = [...]string{
	IfLoopbackNone: "none",
	IfLoopbackMac:  "mac",
	IfLoopbackPhy:  "phy",
}

func (x IfLoopbackType) String() string {
	if int(x) < len(ifLoopbackNames) {
		return ifLoopbackNames[x]
	}
	return fmt.Sprintf("loopback %d", int(x))
}

func ParseIfLoopbackType(s string) (x IfLoopbackType, err error) {
	for i, n := range ifLoopbackNames {
		if n == s {
			x = IfLoopbackType(i)
			return
		}
	}
	err = fmt.Errorf("%q: unknown loopback type", s)
	return
}
