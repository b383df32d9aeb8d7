/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/facebook/ptpslave/ptptime"
)

// readTimeout bounds blocking reads so receivers notice cancellation
const readTimeout = 500 * time.Millisecond

// Transport is a pair of UDP sockets PTP slave talks through
type Transport struct {
	cfg     Config
	iface   *net.Interface
	event   *net.UDPConn
	eventFd int
	general *net.UDPConn
	dest    *net.UDPAddr

	// guards TX timestamp buffers, one Delay_Req in flight at a time
	mu   sync.Mutex
	oob  []byte
	toob []byte
}

// New binds event and general sockets, joins multicast groups and enables timestamping
func New(cfg Config) (*Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Transport{
		cfg:  cfg,
		oob:  make([]byte, controlSizeBytes),
		toob: make([]byte, controlSizeBytes),
	}
	var err error
	if cfg.Iface != "" {
		if t.iface, err = net.InterfaceByName(cfg.Iface); err != nil {
			return nil, fmt.Errorf("getting interface %s: %w", cfg.Iface, err)
		}
	}
	if t.event, err = t.listen(cfg.EventPort); err != nil {
		return nil, err
	}
	if t.general, err = t.listen(cfg.GeneralPort); err != nil {
		t.event.Close()
		return nil, err
	}
	if err := t.setupEvent(); err != nil {
		t.Close()
		return nil, err
	}
	port := cfg.EventPort
	if port <= 0 {
		port = t.event.LocalAddr().(*net.UDPAddr).Port
	}
	t.dest = &net.UDPAddr{IP: cfg.Destination, Port: port}
	return t, nil
}

func (t *Transport) listen(port int) (*net.UDPConn, error) {
	log.Infof("Binding on port %d", port)
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: bindPort(port)})
	if err != nil {
		return nil, fmt.Errorf("listening on port %d: %w", port, err)
	}
	p := ipv4.NewPacketConn(conn)
	if t.cfg.DSCP > 0 {
		// DSCP is the upper 6 bits of TOS
		if err := p.SetTOS(t.cfg.DSCP << 2); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting DSCP: %w", err)
		}
	}
	if t.iface == nil {
		return conn, nil
	}
	if err := p.SetMulticastInterface(t.iface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting multicast interface %s: %w", t.iface.Name, err)
	}
	if err := p.SetMulticastTTL(1); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting multicast TTL: %w", err)
	}
	if err := p.SetMulticastLoopback(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("disabling multicast loopback: %w", err)
	}
	for _, g := range t.cfg.Groups {
		if err := p.JoinGroup(t.iface, &net.UDPAddr{IP: g}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("joining %v on %s: %w", g, t.iface.Name, err)
		}
		log.Infof("Joined multicast group %v on %s", g, t.iface.Name)
	}
	return conn, nil
}

func (t *Transport) setupEvent() error {
	var err error
	if t.eventFd, err = connFd(t.event); err != nil {
		return fmt.Errorf("getting event connection FD: %w", err)
	}
	if err := enableTimestamps(t.eventFd, t.cfg.Timestamping, t.cfg.Iface); err != nil {
		return fmt.Errorf("enabling %s timestamps: %w", t.cfg.Timestamping, err)
	}
	// recvmsg on non-blocking socket returns nothing most of the time
	if err := unix.SetNonblock(t.eventFd, false); err != nil {
		return fmt.Errorf("setting event socket to blocking: %w", err)
	}
	tv := unix.NsecToTimeval(readTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(t.eventFd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fmt.Errorf("setting event socket read timeout: %w", err)
	}
	return nil
}

// EventAddr returns local address of the event socket
func (t *Transport) EventAddr() *net.UDPAddr {
	return t.event.LocalAddr().(*net.UDPAddr)
}

// GeneralAddr returns local address of the general socket
func (t *Transport) GeneralAddr() *net.UDPAddr {
	return t.general.LocalAddr().(*net.UDPAddr)
}

// Run delivers packets from both sockets to h until ctx is done
func (t *Transport) Run(ctx context.Context, h Handler) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return t.receiveEvent(ctx, h)
	})
	eg.Go(func() error {
		return t.receiveGeneral(ctx, h)
	})
	return eg.Wait()
}

func (t *Transport) receiveEvent(ctx context.Context, h Handler) error {
	buf := make([]byte, payloadSizeBytes)
	oob := make([]byte, controlSizeBytes)
	for ctx.Err() == nil {
		n, rx, err := readPacketWithRXTimestamp(t.eventFd, buf, oob)
		if errors.Is(err, errNoRXTimestamp) {
			log.Warningf("dropping event packet: %v", err)
			continue
		}
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading from event socket: %w", err)
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		h(data, rx)
	}
	return nil
}

func (t *Transport) receiveGeneral(ctx context.Context, h Handler) error {
	buf := make([]byte, payloadSizeBytes)
	for ctx.Err() == nil {
		if err := t.general.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		n, _, err := t.general.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading from general socket: %w", err)
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		h(data, ptptime.Timestamp{})
	}
	return nil
}

// SendDelayReq sends Delay_Req from the event socket and returns its TX timestamp
func (t *Transport) SendDelayReq(b []byte) (ptptime.Timestamp, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.event.WriteToUDP(b, t.dest); err != nil {
		return ptptime.Timestamp{}, fmt.Errorf("sending to %v: %w", t.dest, err)
	}
	ts, err := readTXTimestamp(t.eventFd, t.oob, t.toob)
	if err != nil {
		return ptptime.Timestamp{}, fmt.Errorf("getting TX timestamp: %w", err)
	}
	return ts, nil
}

// Close closes both sockets
func (t *Transport) Close() error {
	var errs []error
	if t.event != nil {
		errs = append(errs, t.event.Close())
	}
	if t.general != nil {
		errs = append(errs, t.general.Close())
	}
	return errors.Join(errs...)
}
