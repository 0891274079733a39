// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import "errors"

var (
	ErrInvalidDevice       = errors.New("invalid device")
	ErrInvalidConfig       = errors.New("invalid config")
	ErrHardwareTimeout     = errors.New("hardware timeout")
	ErrRingFull            = errors.New("tx ring full")
	ErrChecksumOrFrame     = errors.New("rx checksum or frame error")
	ErrLinkDown            = errors.New("link down")
	ErrDmaAllocationFailed = errors.New("dma allocation failed")
	ErrNoEeprom            = errors.New("no eeprom and no valid receive address")
	ErrEepromRange         = errors.New("eeprom word out of range")
	ErrFrameTooLong        = errors.New("frame too long for tx ring")
	ErrClosed              = errors.New("device closed")
)

// IsRetryable reports whether err is a transient condition; the same
// call may succeed later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRingFull) || errors.Is(err, ErrLinkDown)
}
