// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// This attaches and exercises an e1000 ethernet controller.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/platinasystems/e1000/cmd/e1000cmd"
)

var Args = os.Args
var Exit = os.Exit
var Stderr io.Writer = os.Stderr

func main() {
	var c e1000cmd.Command
	if err := c.Main(Args[1:]...); err != nil {
		fmt.Fprintln(Stderr, "e1000:", err)
		Exit(1)
	}
}
