// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import "testing"

func TestIfLoopbackType(t *testing.T) {
	for _, x := range []IfLoopbackType{IfLoopbackNone, IfLoopbackMac, IfLoopbackPhy} {
		y, err := ParseIfLoopbackType(x.String())
		if err != nil || y != x {
			t.Errorf("%v: got %v %v", x, y, err)
		}
	}
	if _, err := ParseIfLoopbackType("serdes"); err == nil {
		t.Errorf("serdes: got nil error")
	}
}

func TestBindAddress(t *testing.T) {
	a, err := ParseBindAddress("10.0.0.1/24")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := a.String(), "10.0.0.1/24"; got != want {
		t.Errorf("got %s want %s", got, want)
	}
	b, _ := ParseBindAddress("10.0.0.1/16")
	if a.Equal(b) {
		t.Errorf("%v == %v", a, b)
	}
	if _, err = ParseBindAddress("10.0.0.1"); err == nil {
		t.Errorf("missing prefix: got nil error")
	}
}

func TestInterfaceCounters(t *testing.T) {
	c := InterfaceCounters{"tx packets": 3, "rx packets": 2, "rx bytes": 128}
	got, want := c.Names(), []string{"rx bytes", "rx packets", "tx packets"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v want %v", got, want)
		}
	}
}
