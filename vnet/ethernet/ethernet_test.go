// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ethernet

import (
	"testing"
)

func TestParseAddress(t *testing.T) {
	want := Address{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}
	for _, s := range []string{"52:54:00:12:34:56", "5254.0012.3456"} {
		a, err := ParseAddress(s)
		if err != nil {
			t.Errorf("%s: %v", s, err)
			continue
		}
		if a != want {
			t.Errorf("%s: got %v want %v", s, &a, &want)
		}
	}
	if got, want := want.String(), "52:54:00:12:34:56"; got != want {
		t.Errorf("String: got %s want %s", got, want)
	}
	if _, err := ParseAddress("52:54"); err == nil {
		t.Errorf("short address: got nil error")
	}
}

func TestHeader(t *testing.T) {
	h := Header{
		Dst:  BroadcastAddr,
		Src:  Address{0x52, 0x54, 0x00, 0x12, 0x34, 0x56},
		Type: Experimental,
	}
	b := make([]byte, HeaderBytes)
	h.Write(b)
	if got, want := b[12:14], []byte{0x88, 0xb5}; got[0] != want[0] || got[1] != want[1] {
		t.Errorf("type bytes: got %x want %x", got, want)
	}
	var g Header
	if err := g.Read(b); err != nil {
		t.Fatal(err)
	}
	if g != h {
		t.Errorf("got %v want %v", g, h)
	}
	if !g.IsBroadcast() {
		t.Errorf("%v: not broadcast", &g.Dst)
	}
	if err := g.Read(b[:10]); err != ErrShortPacket {
		t.Errorf("short: got %v want %v", err, ErrShortPacket)
	}
}

func TestIsBroadcast(t *testing.T) {
	for _, x := range []struct {
		a    Address
		want bool
	}{
		{BroadcastAddr, true},
		{Address{0x01, 0x00, 0x5e, 0x00, 0x00, 0x01}, false},
		{Address{0x33, 0x33, 0x00, 0x00, 0x00, 0x01}, false},
		{Address{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}, false},
	} {
		h := Header{Dst: x.a}
		if got := h.IsBroadcast(); got != x.want {
			t.Errorf("%v: got %v want %v", &x.a, got, x.want)
		}
	}
}
