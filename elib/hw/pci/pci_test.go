// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import "testing"

func TestParseBusAddress(t *testing.T) {
	for _, x := range []struct {
		in   string
		want BusAddress
	}{
		{"0000:00:03.0", BusAddress{Bus: 0, Slot: 3, Fn: 0}},
		{"0001:3b:1f.7", BusAddress{Domain: 1, Bus: 0x3b, Slot: 0x1f, Fn: 7}},
		{"02:00.1", BusAddress{Bus: 2, Slot: 0, Fn: 1}},
	} {
		got, err := ParseBusAddress(x.in)
		if err != nil {
			t.Errorf("%s: %v", x.in, err)
			continue
		}
		if got != x.want {
			t.Errorf("%s: got %v want %v", x.in, got, x.want)
		}
	}
	for _, in := range []string{"", "eth0", "00:20.0", "00:03.8"} {
		if _, err := ParseBusAddress(in); err == nil {
			t.Errorf("%q: got nil error", in)
		}
	}
	a := BusAddress{Bus: 0x3b, Slot: 2, Fn: 1}
	if got, want := a.String(), "0000:3b:02.1"; got != want {
		t.Errorf("String: got %s want %s", got, want)
	}
}

func TestParseConfigHeader(t *testing.T) {
	b := []byte{
		0x86, 0x80, 0x0e, 0x10, // vendor, device
		0x06, 0x00, 0x10, 0x00, // command, status
		0x02, 0x00, 0x00, 0x02, // revision, prog-if, class
		0x10, 0x40, 0x00, 0x00,
	}
	h, err := ParseConfigHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := h.DeviceID, (DeviceID{Vendor: Intel, Device: 0x100e}); got != want {
		t.Errorf("id: got %v want %v", got, want)
	}
	if got, want := h.Command, MemoryEnable|BusMasterEnable; got != want {
		t.Errorf("command: got %v want %v", got, want)
	}
	if h.Status&StatusCapabilityList == 0 {
		t.Errorf("status: got %x want capability list", uint16(h.Status))
	}
	if got, want := h.Class, Network_Ethernet; got != want {
		t.Errorf("class: got %v want %v", got, want)
	}
	if got, want := h.Revision, uint8(2); got != want {
		t.Errorf("revision: got %d want %d", got, want)
	}
	if _, err = ParseConfigHeader(b[:8]); err == nil {
		t.Errorf("short header: got nil error")
	}
}

func TestCommand(t *testing.T) {
	c := MemoryEnable | BusMasterEnable
	if got, want := c.String(), "{memory, bus-master}"; got != want {
		t.Errorf("got %s want %s", got, want)
	}
	if Command(0xffff).Valid() || Status(0xffff).Valid() {
		t.Errorf("all ones: got valid")
	}
	if !c.Valid() {
		t.Errorf("%v: got invalid", c)
	}
}
