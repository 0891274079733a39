// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
	"github.com/platinasystems/e1000/vnet/ethernet"
)

func (d *Dev) detectEeprom() bool {
	return d.get(regs.EECD)&regs.EecdPresent != 0
}

// eepromRead reads one 16 bit word.  The request/read/poll/release
// sequence runs under eepromMu; two sequences must never interleave
// since the part has a single read cursor.
func (d *Dev) eepromRead(ctx context.Context, word uint) (v uint16, err error) {
	if !d.have_eeprom {
		return 0, ErrNoEeprom
	}
	if word >= regs.EepromWords {
		return 0, fmt.Errorf("eeprom word %d: %w", word, ErrEepromRange)
	}
	d.eepromMu.Lock()
	defer d.eepromMu.Unlock()

	d.or(regs.EECD, regs.EecdRequest)
	defer d.andnot(regs.EECD, regs.EecdRequest)

	for try := 0; try <= max(d.EepromRetries, 0); try++ {
		d.set(regs.EERD, regs.EerdStart|uint32(word)<<regs.EerdAddrShift)
		var x uint32
		err = poll(ctx, d.EepromTimeout.Duration, func() bool {
			x = d.get(regs.EERD)
			return x&regs.EerdDone != 0
		})
		if err == nil {
			v = uint16(x >> regs.EerdDataShift)
			return
		}
		if !errors.Is(err, ErrHardwareTimeout) || ctx.Err() != nil {
			break
		}
	}
	err = fmt.Errorf("eeprom word %d: %w", word, err)
	return
}

// readMac composes the station address from EEPROM words 0-2, low
// byte first within each word.
func (d *Dev) readMac(ctx context.Context) (a ethernet.Address, err error) {
	for i := uint(0); i < 3; i++ {
		var w uint16
		if w, err = d.eepromRead(ctx, i); err != nil {
			return
		}
		a[2*i+0] = byte(w)
		a[2*i+1] = byte(w >> 8)
	}
	return
}

// stationAddress reads the EEPROM when present.  Flash only parts are
// accepted only when receive address 0 was loaded valid at reset;
// otherwise the device is rejected.
func (d *Dev) stationAddress(ctx context.Context) (a ethernet.Address, err error) {
	if d.have_eeprom {
		return d.readMac(ctx)
	}
	hi := d.get(regs.RAH0)
	if hi&regs.RahAddressValid == 0 {
		err = fmt.Errorf("%s: %w", d.Name(), ErrNoEeprom)
		return
	}
	lo := d.get(regs.RAL0)
	a = ethernet.Address{byte(lo), byte(lo >> 8), byte(lo >> 16), byte(lo >> 24), byte(hi), byte(hi >> 8)}
	return
}

// EepromWords reads n words starting at word 0.
func (d *Dev) EepromWords(ctx context.Context, n uint) (ws []uint16, err error) {
	if n > regs.EepromWords {
		err = fmt.Errorf("%d words: %w", n, ErrEepromRange)
		return
	}
	if !d.hold() {
		err = ErrClosed
		return
	}
	defer d.life.RUnlock()
	ws = make([]uint16, n)
	for i := range ws {
		if ws[i], err = d.eepromRead(ctx, uint(i)); err != nil {
			return
		}
	}
	return
}
