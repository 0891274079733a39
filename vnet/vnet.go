// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import "sort"

// InterfaceCounters maps counter name to value.
type InterfaceCounters map[string]uint64

// Names returns counter names in sorted order.
func (c InterfaceCounters) Names() (ns []string) {
	for n := range c {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return
}
