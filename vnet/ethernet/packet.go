// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ethernet

import (
	"encoding/binary"
	"errors"
)

// Header for ethernet packets as they appear on the network.
type Header struct {
	Dst  Address
	Src  Address
	Type Type
}

// Packet type from ethernet header.
type Type uint16

// Local experimental ethertype.
const Experimental Type = 0x88b5

const (
	AddressBytes    = 6
	HeaderBytes     = 14
	VlanHeaderBytes = 4
	CrcBytes        = 4

	// Frame sizes without FCS.
	MinFrameBytes = 60
	MaxFrameBytes = 1514
)

var ErrShortPacket = errors.New("packet shorter than ethernet header")

// Write header to b in network byte order.
func (h *Header) Write(b []byte) {
	copy(b[0:], h.Dst[:])
	copy(b[6:], h.Src[:])
	binary.BigEndian.PutUint16(b[12:], uint16(h.Type))
}

// Read header from start of packet b.
func (h *Header) Read(b []byte) (err error) {
	if len(b) < HeaderBytes {
		return ErrShortPacket
	}
	copy(h.Dst[:], b[0:])
	copy(h.Src[:], b[6:])
	h.Type = Type(binary.BigEndian.Uint16(b[12:]))
	return
}

func (h *Header) IsBroadcast() bool { return h.Dst.IsBroadcast() }

type Address [AddressBytes]byte

var BroadcastAddr = Address{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (a *Address) IsBroadcast() bool { return *a == BroadcastAddr }
