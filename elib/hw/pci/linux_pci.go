// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pci

// Linux PCI code

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/platinasystems/e1000/elib/hw"
)

var sysBusPciPath string = "/sys/bus/pci/devices"

// SysfsDevice reaches a PCI function through /sys/bus/pci.  The
// function is expected to be bound to uio_pci_generic or vfio-pci so
// that no kernel driver owns it.
type SysfsDevice struct {
	Device
}

func NewSysfsDevice(a BusAddress) (d *SysfsDevice, err error) {
	d = &SysfsDevice{}
	d.Addr = a
	if err = d.readConfig(); err != nil {
		return
	}
	err = d.findResources()
	return
}

func (d *SysfsDevice) GetDevice() *Device { return &d.Device }

func (d *Device) SysfsPath(format string, args ...interface{}) (path string) {
	path = filepath.Join(sysBusPciPath, d.Addr.String(), fmt.Sprintf(format, args...))
	return
}

func (d *Device) SysfsOpenFile(format string, mode int, args ...interface{}) (f *os.File, err error) {
	fn := d.SysfsPath(format, args...)
	f, err = os.OpenFile(fn, mode, 0)
	return
}

func (d *SysfsDevice) readConfig() (err error) {
	f, err := d.SysfsOpenFile("config", os.O_RDONLY)
	if err != nil {
		return
	}
	defer f.Close()
	var b [ConfigHeaderBytes]byte
	if _, err = f.ReadAt(b[:], 0); err != nil {
		return
	}
	d.Config, err = ParseConfigHeader(b[:])
	return
}

func (d *SysfsDevice) writeCommand(c Command) (err error) {
	f, err := d.SysfsOpenFile("config", os.O_WRONLY)
	if err != nil {
		return
	}
	defer f.Close()
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(c))
	_, err = f.WriteAt(b[:], 4)
	return
}

// Open enables memory decode and bus mastering, then re-reads the
// config header so status/command reflect the hardware.
func (d *SysfsDevice) Open() (err error) {
	if err = d.readConfig(); err != nil {
		return
	}
	if !d.Config.Command.Valid() {
		return fmt.Errorf("%s: device not responding", &d.Addr)
	}
	c := d.Config.Command | MemoryEnable | BusMasterEnable
	if c != d.Config.Command {
		if err = d.writeCommand(c); err != nil {
			return
		}
	}
	return d.readConfig()
}

func (d *SysfsDevice) Close() (err error) {
	for i := range d.Resources {
		if e := d.UnmapResource(uint(i)); e != nil && err == nil {
			err = e
		}
	}
	return
}

func (d *SysfsDevice) MapResource(bar uint) (w hw.Regs, err error) {
	if bar >= uint(len(d.Resources)) || d.Resources[bar].Size == 0 {
		err = fmt.Errorf("%s: resource%d: %w", &d.Addr, bar, ErrNotMapped)
		return
	}
	r := &d.Resources[bar]
	if r.Mem != nil {
		return r.Mem, nil
	}
	var f *os.File
	f, err = d.SysfsOpenFile("resource%d", os.O_RDWR, r.Index)
	if err != nil {
		return
	}
	defer f.Close()
	var b []byte
	b, err = unix.Mmap(int(f.Fd()), 0, int(r.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		err = fmt.Errorf("mmap resource%d: %s", r.Index, err)
		return
	}
	r.Mem = hw.Mem(b)
	w = r.Mem
	return
}

func (d *SysfsDevice) UnmapResource(bar uint) (err error) {
	r := &d.Resources[bar]
	if r.Mem != nil {
		err = unix.Munmap(r.Mem)
		r.Mem = nil
		if err != nil {
			return fmt.Errorf("munmap resource%d: %s", bar, err)
		}
	}
	return
}

// Loop through BARs to find resources.
func (d *SysfsDevice) findResources() (err error) {
	var f *os.File
	if f, err = d.SysfsOpenFile("resource", os.O_RDONLY); err != nil {
		return
	}
	defer f.Close()

	var b []byte
	if b, err = ioutil.ReadAll(f); err != nil {
		return
	}
	r := bytes.NewReader(b)
	i := 0
	for r.Len() > 0 {
		var (
			v [3]uint64
			n int
		)
		if n, err = fmt.Fscanf(r, "0x%x 0x%x 0x%x\n", &v[0], &v[1], &v[2]); n != 3 || err != nil {
			if n != 3 {
				err = fmt.Errorf("short read")
			}
			return
		}
		size := v[0]
		if v[0] != 0 {
			size = 1 + v[1] - v[0]
		}
		res := Resource{
			Index: uint32(i),
			Base:  v[0],
			Size:  size,
		}
		d.Resources = append(d.Resources, res)
		i++
	}
	return
}

// DiscoverDevices returns functions matching any of the given ids.
func DiscoverDevices(ids ...DeviceID) (devs []*SysfsDevice, err error) {
	fis, err := ioutil.ReadDir(sysBusPciPath)
	if os.IsNotExist(err) {
		err = nil
		return
	}
	if err != nil {
		return
	}
	want := make(map[DeviceID]bool)
	for _, id := range ids {
		want[id] = true
	}
	for _, fi := range fis {
		var a BusAddress
		if a, err = ParseBusAddress(fi.Name()); err != nil {
			return
		}
		var d *SysfsDevice
		if d, err = NewSysfsDevice(a); err != nil {
			return
		}
		if want[d.Config.DeviceID] {
			devs = append(devs, d)
		}
	}
	return
}
