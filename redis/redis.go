// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package redis publishes interface state and counters to a redis
// server.  Each value is kept in a hash field named
// "<interface>.<attribute>" and every change is also announced as
// "<field>: <value>" on the pubsub channel of the same name as the hash.
package redis

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/platinasystems/log"

	"github.com/platinasystems/e1000/vnet"
	"github.com/platinasystems/e1000/vnet/devices/ethernet/e1000"
	"github.com/platinasystems/e1000/vnet/ethernet"
)

const (
	Timeout        = 500 * time.Millisecond
	DefaultAddress = "127.0.0.1:6379"
	DefaultHash    = "e1000"
)

// Dial connects to addr: host:port or the path of a unix socket.
func Dial(addr string) (redis.Conn, error) {
	network := "tcp"
	if strings.HasPrefix(addr, "/") {
		network = "unix"
	}
	conn, err := net.DialTimeout(network, addr, Timeout)
	if err != nil {
		return nil, err
	}
	return redis.NewConn(conn, Timeout, Timeout), nil
}

func Key(v interface{}) string {
	s := fmt.Sprint(v)
	if strings.Contains(s, ".") {
		s = fmt.Sprint("[", s, "]")
	}
	return s
}

// CounterKey is the hash field of an interface counter.
func CounterKey(ifname, counter string) string {
	return Key(ifname) + "." + strings.Replace(counter, " ", "_", -1)
}

// Source is what a Publisher reads from an interface.
type Source interface {
	Name() string
	IsUp() bool
	Speed() uint
	HardwareAddress() ethernet.Address
	Counters() vnet.InterfaceCounters
}

type Publisher struct {
	Hash string
	// Publish counters that have never been non-zero.
	PublishAllCounters bool

	mu   sync.Mutex
	conn redis.Conn
	last map[string]string
}

func NewPublisher(conn redis.Conn, hash string) *Publisher {
	if hash == "" {
		hash = DefaultHash
	}
	return &Publisher{
		Hash: hash,
		conn: conn,
		last: make(map[string]string),
	}
}

type key_value struct {
	key, value string
	is_counter bool
}

func (p *Publisher) state(s Source) (kvs []key_value) {
	name := Key(s.Name())
	link := "down"
	if s.IsUp() {
		link = "up"
	}
	a := s.HardwareAddress()
	kvs = append(kvs,
		key_value{key: name + ".link", value: link},
		key_value{key: name + ".speed", value: fmt.Sprint(s.Speed())},
		key_value{key: name + ".mac", value: a.String()},
	)
	c := s.Counters()
	for _, n := range c.Names() {
		kvs = append(kvs, key_value{
			key:        CounterKey(s.Name(), n),
			value:      fmt.Sprint(c[n]),
			is_counter: true,
		})
	}
	return
}

// Publish writes the fields of s that changed since the last call.
// It returns the number of fields written.
func (p *Publisher) Publish(s Source) (n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var changed []key_value
	for _, kv := range p.state(s) {
		old, seen := p.last[kv.key]
		if seen && old == kv.value {
			continue
		}
		if !seen && kv.is_counter && kv.value == "0" && !p.PublishAllCounters {
			continue
		}
		changed = append(changed, kv)
	}
	if len(changed) == 0 {
		return
	}
	for _, kv := range changed {
		if err = p.conn.Send("HSET", p.Hash, kv.key, kv.value); err != nil {
			return
		}
		if err = p.conn.Send("PUBLISH", p.Hash, kv.key+": "+kv.value); err != nil {
			return
		}
	}
	if _, err = p.conn.Do(""); err != nil {
		return
	}
	for _, kv := range changed {
		p.last[kv.key] = kv.value
	}
	n = len(changed)
	return
}

// LinkHook publishes on link state change; add it with
// (*e1000.Dev).AddLinkHook.
func (p *Publisher) LinkHook(d *e1000.Dev, isUp bool) {
	if _, err := p.Publish(d); err != nil {
		log.Print("daemon", "err", d.Name(), ": redis: ", err)
	}
}

// Run publishes s every interval until ctx ends.
func (p *Publisher) Run(ctx context.Context, s Source, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := p.Publish(s); err != nil {
			log.Print("daemon", "err", s.Name(), ": redis: ", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.Close()
}
