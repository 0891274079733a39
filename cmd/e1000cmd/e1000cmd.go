// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package e1000cmd attaches an e1000 controller, real or simulated,
// and shows its state, sends test frames or publishes it to redis.
package e1000cmd

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/parms"

	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/elib/hw/pci"
	"github.com/platinasystems/e1000/redis"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/sim"
	"github.com/platinasystems/e1000/vnet/ethernet"
)

// Station address of the simulated card.
var SimAddress = ethernet.Address{0x02, 0x00, 0x00, 0x00, 0x10, 0x00}

type Command struct {
	// Output; default os.Stdout.
	Stdout io.Writer
}

func (Command) String() string { return "e1000" }

func (Command) Usage() string {
	return `e1000 [-sim | -pci BUS:SLOT.FN] [-config FILE] [-loopback] [-a] [-rings]
	[show | list | eeprom [WORDS] | send [COUNT [LENGTH]] |
	publish [-redis ADDRESS] [-hash KEY] [-interval DURATION]]`
}

func (Command) Apropos() map[string]string {
	return map[string]string{
		"en_US.UTF-8": "attach and exercise an e1000 ethernet controller",
	}
}

func (Command) Man() map[string]string {
	return map[string]string{
		"en_US.UTF-8": `
DESCRIPTION
	Attach the Intel 8254x controller at the given PCI address (bound
	to uio_pci_generic or vfio-pci) or a simulated one, then:

	show	link, address and counters (default)
	list	supported controllers found on the PCI bus
	eeprom	first WORDS words of EEPROM (default 3)
	send	COUNT frames of LENGTH bytes (default 1, 60) and count
		frames received back; the simulated card loops frames back
	publish	state and counters to redis once, or every DURATION
		until interrupted

OPTIONS
	-sim		use a simulated controller
	-pci		PCI address of the controller
	-config		YAML driver config
	-loopback	MAC loopback
	-a		show counters with zero value
	-rings		show descriptor rings`,
	}
}

func (c *Command) Main(args ...string) (err error) {
	flag, args := flags.New(args, "-sim", "-loopback", "-a", "-rings")
	parm, args := parms.New(args, "-pci", "-config", "-redis", "-hash", "-interval")

	w := c.Stdout
	if w == nil {
		w = os.Stdout
	}
	op := "show"
	if len(args) > 0 {
		op, args = args[0], args[1:]
	}
	nargs := map[string]int{"show": 0, "list": 0, "eeprom": 1, "send": 2, "publish": 0}
	maxArgs, ok := nargs[op]
	if !ok {
		return fmt.Errorf("%s: unknown command", op)
	}
	if len(args) > maxArgs {
		return fmt.Errorf("%v: unexpected", args[maxArgs:])
	}
	if op == "list" {
		return list(newTable(w))
	}

	var cfg e1000.Config
	if fn := parm.ByName["-config"]; fn != "" {
		if cfg, err = e1000.LoadConfig(fn); err != nil {
			return
		}
	}
	if flag.ByName["-loopback"] {
		cfg.Loopback = "mac"
	}
	var interval time.Duration
	if s := parm.ByName["-interval"]; s != "" {
		if interval, err = time.ParseDuration(s); err != nil || interval <= 0 {
			return fmt.Errorf("-interval %s: invalid", s)
		}
		if cfg.PollInterval.Duration == 0 {
			cfg.PollInterval.Duration = 10 * time.Millisecond
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d, release, err := attach(ctx, flag.ByName["-sim"], parm.ByName["-pci"], cfg)
	if err != nil {
		return
	}
	defer release()
	defer d.Close()

	t := newTable(w)
	defer t.flush()
	switch op {
	case "show":
		show(t, d, flag.ByName["-a"])
		if flag.ByName["-rings"] {
			t.flush()
			d.DumpRings(w)
		}
	case "eeprom":
		n := uint64(3)
		if len(args) > 0 {
			if n, err = strconv.ParseUint(args[0], 0, 8); err != nil {
				return fmt.Errorf("WORDS: %v", err)
			}
		}
		var ws []uint16
		if ws, err = d.EepromWords(ctx, uint(n)); err != nil {
			return
		}
		for i, x := range ws {
			t.row(fmt.Sprintf("0x%02x", i), fmt.Sprintf("0x%04x", x))
		}
	case "send":
		count, length := uint64(1), uint64(ethernet.MinFrameBytes)
		if len(args) > 0 {
			if count, err = strconv.ParseUint(args[0], 0, 32); err != nil {
				return fmt.Errorf("COUNT: %v", err)
			}
		}
		if len(args) > 1 {
			if length, err = strconv.ParseUint(args[1], 0, 16); err != nil {
				return fmt.Errorf("LENGTH: %v", err)
			}
			if length < ethernet.MinFrameBytes {
				return fmt.Errorf("LENGTH: %d shorter than %d", length, ethernet.MinFrameBytes)
			}
		}
		var rx int
		if rx, err = send(ctx, d, int(count), int(length)); err != nil {
			return
		}
		t.row("sent", count)
		t.row("received", rx)
	case "publish":
		err = publish(ctx, t, d, parm.ByName["-redis"], parm.ByName["-hash"], interval)
	}
	return
}

// attach returns the device and a function releasing its DMA memory
// after Close.
func attach(ctx context.Context, useSim bool, addr string, cfg e1000.Config) (d *e1000.Dev, release func(), err error) {
	release = func() {}
	if useSim {
		h := &hw.Heap{}
		s := sim.New(h, sim.Config{Mac: SimAddress, Loopback: true})
		d, err = e1000.New(ctx, s.Pci(pci.BusAddress{Slot: 3}), h, cfg)
		return
	}
	if addr == "" {
		err = fmt.Errorf("-pci: missing")
		return
	}
	a, err := pci.ParseBusAddress(addr)
	if err != nil {
		return
	}
	p, dma, err := openPci(a)
	if err != nil {
		return
	}
	if d, err = e1000.New(ctx, p, dma, cfg); err != nil {
		dma.Close()
		return
	}
	release = func() { dma.Close() }
	return
}

func show(t *table, d *e1000.Dev, all bool) {
	t.row("name", d.Name())
	t.row("device", d)
	a := d.HardwareAddress()
	t.row("address", &a)
	t.row("link", d.Status())
	c := d.Counters()
	for _, n := range c.Names() {
		if v := c[n]; v != 0 || all {
			t.row(n, v)
		}
	}
}

// send transmits count frames and returns the number of them received
// back while doing so.
func send(ctx context.Context, d *e1000.Dev, count, length int) (rx int, err error) {
	f := make([]byte, length)
	h := ethernet.Header{
		Dst:  ethernet.BroadcastAddr,
		Src:  d.HardwareAddress(),
		Type: ethernet.Experimental,
	}
	h.Write(f)
	b := make([]byte, 16<<10)
	for i := 0; i < count; i++ {
		binary.BigEndian.PutUint32(f[ethernet.HeaderBytes:], uint32(i))
		for {
			if _, err = d.Write(f); !errors.Is(err, e1000.ErrRingFull) {
				break
			}
			if err = ctx.Err(); err != nil {
				return
			}
			d.Poll()
			rx += drain(d, &h, b)
		}
		if err != nil {
			return
		}
		rx += drain(d, &h, b)
	}
	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	for rx < count {
		n, e := d.ReadContext(ctx, b)
		if e != nil {
			break
		}
		if ours(&h, b[:n]) {
			rx++
		}
	}
	return
}

// drain reads every pending frame and counts those sent as h.
func drain(d *e1000.Dev, h *ethernet.Header, b []byte) (n int) {
	for {
		l, _, err := d.Read(b)
		if err != nil || l == 0 {
			return
		}
		if ours(h, b[:l]) {
			n++
		}
	}
}

func ours(h *ethernet.Header, b []byte) bool {
	var r ethernet.Header
	if r.Read(b) != nil {
		return false
	}
	return r.Type == h.Type && r.Src == h.Src && r.IsBroadcast()
}

func publish(ctx context.Context, t *table, d *e1000.Dev, addr, hash string, interval time.Duration) error {
	if addr == "" {
		addr = redis.DefaultAddress
	}
	conn, err := redis.Dial(addr)
	if err != nil {
		return err
	}
	p := redis.NewPublisher(conn, hash)
	defer p.Close()
	if interval == 0 {
		n, err := p.Publish(d)
		if err == nil {
			t.row("published", n)
		}
		return err
	}
	d.AddLinkHook(p.LinkHook)
	done := make(chan struct{})
	go func() {
		d.Run(ctx, nil)
		close(done)
	}()
	if err = p.Run(ctx, d, interval); errors.Is(err, context.Canceled) {
		err = nil
	}
	<-done
	return err
}

// table writes aligned columns on a terminal and "key: value" lines
// otherwise.
type table struct {
	w  io.Writer
	tw *tabwriter.Writer
}

func newTable(w io.Writer) *table {
	t := &table{w: w}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		t.tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	}
	return t
}

func (t *table) row(k string, v interface{}) {
	if t.tw != nil {
		fmt.Fprintf(t.tw, "%s\t%v\n", k, v)
	} else {
		fmt.Fprintf(t.w, "%s: %v\n", k, v)
	}
}

func (t *table) flush() {
	if t.tw != nil {
		t.tw.Flush()
	}
}
