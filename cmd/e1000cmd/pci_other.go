// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package e1000cmd

import (
	"fmt"
	"runtime"

	"github.com/platinasystems/e1000/elib/hw"
	"github.com/platinasystems/e1000/elib/hw/pci"
)

type dmaCloser interface {
	hw.DmaAllocator
	Close() error
}

func openPci(a pci.BusAddress) (pci.Devicer, dmaCloser, error) {
	return nil, nil, fmt.Errorf("%s: pci not supported on %s", &a, runtime.GOOS)
}

func list(t *table) error {
	return fmt.Errorf("pci not supported on %s", runtime.GOOS)
}
