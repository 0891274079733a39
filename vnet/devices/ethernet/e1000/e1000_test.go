// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"bytes"
	"context"
	"testing"

	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/elib/hw/pci"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/sim"
	"github.com/platinasystems/e1000/vnet/ethernet"
)

var testMac = ethernet.Address{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}

var testAddr = pci.BusAddress{Bus: 0, Slot: 3, Fn: 0}

type testDev struct {
	*Dev
	sim  *sim.Device
	pci  *sim.PciDevice
	heap *hw.Heap
}

func newTestDev(t *testing.T, sc sim.Config, c Config) *testDev {
	t.Helper()
	if sc.Mac == (ethernet.Address{}) {
		sc.Mac = testMac
	}
	h := &hw.Heap{}
	s := sim.New(h, sc)
	p := s.Pci(testAddr)
	d, err := New(context.Background(), p, h, c)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return &testDev{Dev: d, sim: s, pci: p, heap: h}
}

// frame returns an n byte frame with a recognizable payload.
func frame(n int, seed byte) []byte {
	b := make([]byte, n)
	h := ethernet.Header{Dst: ethernet.BroadcastAddr, Src: testMac, Type: ethernet.Experimental}
	if n >= ethernet.HeaderBytes {
		h.Write(b)
	}
	for i := ethernet.HeaderBytes; i < n; i++ {
		b[i] = seed + byte(i)
	}
	return b
}

func checkFrame(t *testing.T, tag string, got, want []byte) {
	t.Helper()
	if !bytes.Equal(got, want) {
		t.Errorf("%s: got %d bytes %x... want %d bytes %x...", tag, len(got), head(got), len(want), head(want))
	}
}

func head(b []byte) []byte {
	if len(b) > 16 {
		return b[:16]
	}
	return b
}
