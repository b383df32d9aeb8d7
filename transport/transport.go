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

/*
Package transport moves PTP packets between the network and the slave.

It listens on the event (319) and general (320) ports, joins PTP multicast
groups and timestamps event packets in the kernel or in the NIC using
SO_TIMESTAMPING, so t2 and t3 come from the packet path and not from
the moment the slave looked at them.
*/
package transport

import (
	"fmt"
	"net"

	ptp "github.com/facebook/ptpslave/ptp/protocol"
	"github.com/facebook/ptpslave/ptptime"
)

// Timestamping modes
const (
	HWTIMESTAMP = "hardware"
	SWTIMESTAMP = "software"
)

// Handler gets every received packet with its RX timestamp.
// General port packets carry zero timestamp. Handler must not block.
type Handler func(b []byte, rx ptptime.Timestamp)

// Config for Transport
type Config struct {
	Iface        string
	Timestamping string
	// Groups are multicast groups to join on Iface
	Groups []net.IP
	// Destination of Delay_Req
	Destination net.IP
	DSCP        int
	// EventPort and GeneralPort are 319 and 320 in DefaultConfig.
	// Zero binds an ephemeral port, Delay_Req then goes to the bound event port.
	EventPort   int
	GeneralPort int
}

// DefaultConfig returns transport config for standard PTP over IPv4 multicast
func DefaultConfig(iface string) Config {
	return Config{
		Iface:        iface,
		Timestamping: HWTIMESTAMP,
		Groups:       []net.IP{ptp.DefaultMulticastGroup, ptp.PeerDelayMulticastGroup},
		Destination:  ptp.DefaultMulticastGroup,
		EventPort:    ptp.PortEvent,
		GeneralPort:  ptp.PortGeneral,
	}
}

// Validate config is sane
func (c *Config) Validate() error {
	if c.Timestamping != HWTIMESTAMP && c.Timestamping != SWTIMESTAMP {
		return fmt.Errorf("only %q and %q timestamping is supported", HWTIMESTAMP, SWTIMESTAMP)
	}
	if c.Destination.To4() == nil {
		return fmt.Errorf("destination %v is not an IPv4 address", c.Destination)
	}
	for _, g := range c.Groups {
		if !g.IsMulticast() || g.To4() == nil {
			return fmt.Errorf("%v is not an IPv4 multicast group", g)
		}
	}
	if c.DSCP < 0 || c.DSCP > 63 {
		return fmt.Errorf("dscp must be within [0, 63]")
	}
	if c.Iface == "" && (c.Timestamping == HWTIMESTAMP || len(c.Groups) > 0) {
		return fmt.Errorf("iface must be specified")
	}
	return nil
}

func bindPort(p int) int {
	if p < 0 {
		return 0
	}
	return p
}
