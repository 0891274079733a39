// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package e1000

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/platinasystems/e1000/vnet"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000/internal/regs"
)

const (
	DefaultRingLen       = 256
	DefaultBufferBytes   = 2048
	DefaultEepromTimeout = 10 * time.Millisecond
	DefaultEepromRetries = 2
	DefaultResetTimeout  = 100 * time.Millisecond
)

// Duration is a time.Duration written as "10ms" in config files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) (err error) {
	var s string
	if err = unmarshal(&s); err != nil {
		return
	}
	d.Duration, err = time.ParseDuration(s)
	return
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

type Config struct {
	// Interface name; default e1000<bus>-<slot>-<fn>.
	InterfaceName string `yaml:"name,omitempty"`

	// Number of descriptors: multiple of 8 from 8 to 4096.
	TxRingLen uint `yaml:"tx_ring_len,omitempty"`
	RxRingLen uint `yaml:"rx_ring_len,omitempty"`

	// Receive buffer size: 256, 512, 1024, 2048, 4096, 8192 or 16384.
	RxBufferBytes uint `yaml:"rx_buffer_bytes,omitempty"`
	// Transmit bounce buffer per descriptor; frames longer than this
	// are split across descriptors.
	TxBufferBytes uint `yaml:"tx_buffer_bytes,omitempty"`

	// Bound on each EEPROM read attempt and number of re-issues;
	// negative retries means none.
	EepromTimeout Duration `yaml:"eeprom_timeout,omitempty"`
	EepromRetries int      `yaml:"eeprom_retries,omitempty"`

	ResetTimeout Duration `yaml:"reset_timeout,omitempty"`

	// When non-zero Run polls descriptor status at this interval in
	// addition to servicing interrupts.
	PollInterval Duration `yaml:"poll_interval,omitempty"`

	// Interrupt moderation in hardware units (1.024us for delays,
	// 256ns for throttle).
	TxInterruptDelay  uint `yaml:"tx_interrupt_delay,omitempty"`
	RxInterruptDelay  uint `yaml:"rx_interrupt_delay,omitempty"`
	InterruptThrottle uint `yaml:"interrupt_throttle,omitempty"`

	Promiscuous bool `yaml:"promiscuous,omitempty"`

	// none or mac
	Loopback string `yaml:"loopback,omitempty"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (c Config, err error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (c Config, err error) {
	if err = yaml.UnmarshalStrict(b, &c); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		return
	}
	err = c.validate()
	return
}

func (c Config) String() string {
	b, _ := yaml.Marshal(&c)
	return string(b)
}

func (c *Config) setDefaults() {
	if c.TxRingLen == 0 {
		c.TxRingLen = DefaultRingLen
	}
	if c.RxRingLen == 0 {
		c.RxRingLen = DefaultRingLen
	}
	if c.RxBufferBytes == 0 {
		c.RxBufferBytes = DefaultBufferBytes
	}
	if c.TxBufferBytes == 0 {
		c.TxBufferBytes = DefaultBufferBytes
	}
	if c.EepromTimeout.Duration == 0 {
		c.EepromTimeout.Duration = DefaultEepromTimeout
	}
	if c.EepromRetries == 0 {
		c.EepromRetries = DefaultEepromRetries
	}
	if c.ResetTimeout.Duration == 0 {
		c.ResetTimeout.Duration = DefaultResetTimeout
	}
}

func validRingLen(n uint) bool {
	return n%8 == 0 && n >= regs.MinRingLen && n <= regs.MaxRingLen
}

// validate checks a config; zero values are valid and mean default.
func (c *Config) validate() error {
	bad := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if c.TxRingLen != 0 && !validRingLen(c.TxRingLen) {
		return bad("tx ring length %d", c.TxRingLen)
	}
	if c.RxRingLen != 0 && !validRingLen(c.RxRingLen) {
		return bad("rx ring length %d", c.RxRingLen)
	}
	if c.RxBufferBytes != 0 {
		if _, ok := regs.RctlBufferSize(c.RxBufferBytes); !ok {
			return bad("rx buffer size %d", c.RxBufferBytes)
		}
	}
	if c.TxBufferBytes > regs.MaxDescriptorLength {
		return bad("tx buffer size %d exceeds %d", c.TxBufferBytes, regs.MaxDescriptorLength)
	}
	if c.TxInterruptDelay > 0xffff || c.RxInterruptDelay > 0xffff || c.InterruptThrottle > 0xffff {
		return bad("interrupt delay out of range")
	}
	if c.EepromTimeout.Duration < 0 || c.ResetTimeout.Duration < 0 || c.PollInterval.Duration < 0 {
		return bad("negative duration")
	}
	if c.Loopback != "" {
		x, err := vnet.ParseIfLoopbackType(c.Loopback)
		if err != nil {
			return bad("%v", err)
		}
		if x == vnet.IfLoopbackPhy {
			return bad("loopback %v: %v", x, vnet.ErrNotSupported)
		}
	}
	return nil
}
