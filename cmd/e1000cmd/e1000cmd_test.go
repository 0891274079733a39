// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/elib/hw/pci"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/sim"
	"github.com/platinasystems/e1000/vnet/ethernet"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var b bytes.Buffer
	c := Command{Stdout: &b}
	err := c.Main(args...)
	return b.String(), err
}

func TestShow(t *testing.T) {
	out, err := run(t, "-sim")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"name: e10000-3-0\n",
		"address: 02:00:00:00:10:00\n",
		"link: up 1000M, eeprom\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "rx packets") {
		t.Errorf("zero counter shown without -a:\n%s", out)
	}
	if out, _ = run(t, "-sim", "-a", "show"); !strings.Contains(out, "rx packets: 0\n") {
		t.Errorf("-a: zero counters missing:\n%s", out)
	}
	if out, _ = run(t, "-sim", "-rings"); !strings.Contains(out, "rx ring: len 256") {
		t.Errorf("-rings: rings missing:\n%s", out)
	}
}

func TestSend(t *testing.T) {
	for _, tc := range []struct {
		args []string
		want string
	}{
		{[]string{"-sim", "send"}, "sent: 1\nreceived: 1\n"},
		{[]string{"-sim", "send", "600", "128"}, "sent: 600\nreceived: 600\n"},
		{[]string{"-sim", "-loopback", "send", "10", "1514"}, "sent: 10\nreceived: 10\n"},
	} {
		out, err := run(t, tc.args...)
		if err != nil {
			t.Errorf("%v: %v", tc.args, err)
			continue
		}
		if out != tc.want {
			t.Errorf("%v: got %q want %q", tc.args, out, tc.want)
		}
	}
}

func newSimDev(t *testing.T, sc sim.Config) (*e1000.Dev, *sim.Device) {
	t.Helper()
	sc.Mac = SimAddress
	h := &hw.Heap{}
	s := sim.New(h, sc)
	d, err := e1000.New(context.Background(), s.Pci(pci.BusAddress{Slot: 3}), h, e1000.Config{TxRingLen: 8, RxRingLen: 8})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d, s
}

func TestSendCancel(t *testing.T) {
	d, _ := newSimDev(t, sim.Config{HoldTx: true})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := send(ctx, d, 20, 60)
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("got %v want %v", err, context.DeadlineExceeded)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("send did not return after cancel")
	}
}

func TestDrain(t *testing.T) {
	d, s := newSimDev(t, sim.Config{})
	h := ethernet.Header{
		Dst:  ethernet.BroadcastAddr,
		Src:  SimAddress,
		Type: ethernet.Experimental,
	}
	other := ethernet.Address{0x02, 0x00, 0x00, 0x00, 0x20, 0x00}
	for _, x := range []ethernet.Header{
		h,
		{Dst: h.Dst, Src: other, Type: h.Type},
		{Dst: ethernet.Address{0x01, 0x00, 0x5e, 0x00, 0x00, 0x01}, Src: h.Src, Type: h.Type},
		{Dst: h.Dst, Src: h.Src, Type: 0x0800},
		h,
	} {
		f := make([]byte, ethernet.MinFrameBytes)
		x.Write(f)
		if !s.Inject(f, 0) {
			t.Fatalf("%v: not received", x)
		}
	}
	// Short frames are not ours either.
	s.Inject(make([]byte, 10), 0)
	if got, want := drain(d, &h, make([]byte, 2048)), 2; got != want {
		t.Errorf("got %d want %d", got, want)
	}
}

func TestEeprom(t *testing.T) {
	out, err := run(t, "-sim", "eeprom", "3")
	if err != nil {
		t.Fatal(err)
	}
	if want := "0x00: 0x0002\n0x01: 0x0000\n0x02: 0x0010\n"; out != want {
		t.Errorf("got %q want %q", out, want)
	}
}

func TestConfig(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "e1000.yaml")
	if err := os.WriteFile(fn, []byte("name: lan0\nrx_ring_len: 64\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "-sim", "-config", fn, "-rings")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"name: lan0\n", "rx ring: len 64"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-sim", "bogus"},
		{"-sim", "show", "extra"},
		{"-sim", "send", "x"},
		{"-sim", "send", "1", "20"},
		{"-sim", "send", "1", "60", "extra"},
		{"-sim", "-interval", "soon", "publish"},
		{"-sim", "-config", "/nonexistent/e1000.yaml"},
		{"show"},
		{"-pci", "zz:zz.z"},
	} {
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v: no error", args)
		}
	}
}

// respServer answers every command with integer reply 1 and records
// the commands.
type respServer struct {
	l    net.Listener
	mu   sync.Mutex
	cmds [][]string
}

func newRespServer(t *testing.T) *respServer {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skip(err)
	}
	s := &respServer{l: l}
	go s.serve()
	t.Cleanup(func() { l.Close() })
	return s
}

func (s *respServer) serve() {
	for {
		c, err := s.l.Accept()
		if err != nil {
			return
		}
		go s.conn(c)
	}
}

func (s *respServer) conn(c net.Conn) {
	defer c.Close()
	r := bufio.NewReader(c)
	for {
		cmd, err := readCommand(r)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.cmds = append(s.cmds, cmd)
		s.mu.Unlock()
		if _, err = io.WriteString(c, ":1\r\n"); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) (cmd []string, err error) {
	line := func() (string, error) {
		s, err := r.ReadString('\n')
		return strings.TrimRight(s, "\r\n"), err
	}
	s, err := line()
	if err != nil {
		return
	}
	if !strings.HasPrefix(s, "*") {
		return nil, fmt.Errorf("%q: not an array", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil {
		return
	}
	for i := 0; i < n; i++ {
		if _, err = line(); err != nil {
			return
		}
		if s, err = line(); err != nil {
			return
		}
		cmd = append(cmd, s)
	}
	return
}

func TestPublish(t *testing.T) {
	s := newRespServer(t)
	out, err := run(t, "-sim", "publish", "-redis", s.l.Addr().String(), "-hash", "test")
	if err != nil {
		t.Fatal(err)
	}
	if want := "published: 3\n"; out != want {
		t.Errorf("got %q want %q", out, want)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var hset []string
	for _, c := range s.cmds {
		if c[0] == "HSET" {
			if c[1] != "test" {
				t.Errorf("%v: got hash %q want test", c, c[1])
			}
			hset = append(hset, c[2]+"="+c[3])
		}
	}
	want := []string{
		"e10000-3-0.link=up",
		"e10000-3-0.speed=1000",
		"e10000-3-0.mac=02:00:00:00:10:00",
	}
	if strings.Join(hset, " ") != strings.Join(want, " ") {
		t.Errorf("got %v want %v", hset, want)
	}
}
