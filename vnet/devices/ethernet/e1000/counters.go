// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"sync"

	"github.com/platinasystems/e1000/vnet"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
)

type counter struct {
	offset   reg
	is_64bit bool
	name     string
}

// Hardware statistics; all clear on read.
var counters = [...]counter{
	{offset: regs.GPRC, name: "rx good packets"},
	{offset: regs.GORCL, name: "rx good bytes", is_64bit: true},
	{offset: regs.TPR, name: "rx total packets"},
	{offset: regs.BPRC, name: "rx broadcast packets"},
	{offset: regs.MPRC, name: "rx multicast packets"},
	{offset: regs.CRCERRS, name: "rx crc errors"},
	{offset: regs.ALGNERRC, name: "rx alignment errors"},
	{offset: regs.SYMERRS, name: "rx symbol errors"},
	{offset: regs.RXERRC, name: "rx errors"},
	{offset: regs.RLEC, name: "rx length errors"},
	{offset: regs.MPC, name: "rx missed packets"},
	{offset: regs.RNBC, name: "rx no buffers"},
	{offset: regs.RUC, name: "rx undersize packets"},
	{offset: regs.ROC, name: "rx oversize packets"},
	{offset: regs.GPTC, name: "tx good packets"},
	{offset: regs.GOTCL, name: "tx good bytes", is_64bit: true},
	{offset: regs.TPT, name: "tx total packets"},
	{offset: regs.COLC, name: "tx collisions"},
}

func (c *counter) get(d *Dev) (v uint64) {
	if c.is_64bit {
		v = c.offset.Get64(d.regs)
	} else {
		v = uint64(c.offset.Get(d.regs))
	}
	return
}

// Driver maintained counters.
type sw_counter_kind int

const (
	rx_packets sw_counter_kind = iota
	rx_bytes
	rx_frame_errors
	rx_truncated
	rx_overruns
	tx_packets
	tx_bytes
	tx_ring_full
	tx_frame_too_long
	n_sw_counter
)

var sw_counter_names = [...]string{
	rx_packets:        "rx packets",
	rx_bytes:          "rx bytes",
	rx_frame_errors:   "rx frame errors",
	rx_truncated:      "rx truncated frames",
	rx_overruns:       "rx overruns",
	tx_packets:        "tx packets",
	tx_bytes:          "tx bytes",
	tx_ring_full:      "tx ring full",
	tx_frame_too_long: "tx frame too long",
}

type sw_counters struct {
	mu sync.Mutex
	v  [n_sw_counter]uint64
}

func (c *sw_counters) add(k sw_counter_kind, n uint64) {
	c.mu.Lock()
	c.v[k] += n
	c.mu.Unlock()
}

type counter_main struct {
	sw_counters sw_counters

	hwMu sync.Mutex
	hw   [len(counters)]uint64
}

// Accumulate clear on read hardware counters.
func (d *Dev) sync_counters() {
	d.hwMu.Lock()
	defer d.hwMu.Unlock()
	for i := range counters {
		d.hw[i] += counters[i].get(d)
	}
}

func (d *Dev) clear_counters() {
	d.hwMu.Lock()
	defer d.hwMu.Unlock()
	for i := range counters {
		counters[i].get(d)
		d.hw[i] = 0
	}
	d.sw_counters.mu.Lock()
	d.sw_counters.v = [n_sw_counter]uint64{}
	d.sw_counters.mu.Unlock()
}

// Clear anything left over from previous runs.
func (d *Dev) counter_init() { d.clear_counters() }

// Counters returns hardware and driver counters by name.
func (d *Dev) Counters() (c vnet.InterfaceCounters) {
	c = make(vnet.InterfaceCounters)
	if d.hold() {
		d.sync_counters()
		d.life.RUnlock()
	}
	d.hwMu.Lock()
	for i := range counters {
		c[counters[i].name] = d.hw[i]
	}
	d.hwMu.Unlock()
	d.sw_counters.mu.Lock()
	for i, n := range sw_counter_names {
		c[n] = d.sw_counters.v[i]
	}
	d.sw_counters.mu.Unlock()
	return
}

func (d *Dev) ClearCounters() {
	if d.hold() {
		d.clear_counters()
		d.life.RUnlock()
	}
}
