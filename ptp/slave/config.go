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

package slave

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/facebook/ptpslave/clock"
	ptp "github.com/facebook/ptpslave/ptp/protocol"
	"github.com/facebook/ptpslave/servo"
	"github.com/facebook/ptpslave/transport"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// Clock devices we can discipline
const (
	ClockPHC         = "phc"
	ClockSystem      = "system"
	ClockFreeRunning = "freerunning"
)

// ServoConfig holds PD gains
type ServoConfig struct {
	Kp float64
	Kd float64
}

// Validate ServoConfig is sane
func (c *ServoConfig) Validate() error {
	if c.Kp <= 0 || c.Kd <= 0 {
		return ErrInvalidGain
	}
	return nil
}

// LogConfig enables optional log channels
type LogConfig struct {
	Cycle      bool // one line per completed cycle
	Correction bool // correction field of Follow_Up and Delay_Resp
}

// Config specifies slave run options
type Config struct {
	Iface                    string
	Timestamping             string
	Clock                    string
	Oscillator               clock.Oscillator
	MulticastGroups          []string
	DSCP                     int
	PortNumber               uint16
	ResponseTimeout          time.Duration
	DelayReqMaxJitter        time.Duration
	QueueSize                int
	OffsetNs                 int64
	Servo                    ServoConfig
	Log                      LogConfig
	MonitoringPort           int
	MetricsAggregationWindow time.Duration
	Console                  bool
}

// DefaultConfig returns Config initialized with default values
func DefaultConfig() *Config {
	return &Config{
		Iface:        "eth0",
		Timestamping: transport.HWTIMESTAMP,
		Clock:        ClockPHC,
		Oscillator:   clock.DefaultOscillator,
		MulticastGroups: []string{
			ptp.DefaultMulticastGroup.String(),
			ptp.PeerDelayMulticastGroup.String(),
		},
		PortNumber:        1,
		ResponseTimeout:   2 * time.Second,
		DelayReqMaxJitter: 500 * time.Millisecond,
		QueueSize:         32,
		Servo: ServoConfig{
			Kp: servo.DefaultKp,
			Kd: servo.DefaultKd,
		},
		MonitoringPort:           4270,
		MetricsAggregationWindow: time.Minute,
	}
}

// Validate config is sane
func (c *Config) Validate() error {
	if c.Iface == "" {
		return fmt.Errorf("iface must be specified")
	}
	if c.Timestamping != transport.HWTIMESTAMP && c.Timestamping != transport.SWTIMESTAMP {
		return fmt.Errorf("only %q and %q timestamping is supported", transport.HWTIMESTAMP, transport.SWTIMESTAMP)
	}
	if c.Clock != ClockPHC && c.Clock != ClockSystem && c.Clock != ClockFreeRunning {
		return fmt.Errorf("clock must be either %q, %q or %q", ClockPHC, ClockSystem, ClockFreeRunning)
	}
	if c.Oscillator.FrequencyHz <= 0 {
		return fmt.Errorf("oscillator frequencyhz must be greater than zero")
	}
	if c.Oscillator.IncrementNs == 0 {
		return fmt.Errorf("oscillator incrementns must be greater than zero")
	}
	for _, g := range c.MulticastGroups {
		ip := net.ParseIP(g)
		if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
			return fmt.Errorf("%q is not an IPv4 multicast group", g)
		}
	}
	if c.DSCP < 0 || c.DSCP > 63 {
		return fmt.Errorf("dscp must be within [0, 63]")
	}
	if c.PortNumber == 0 {
		return fmt.Errorf("portnumber must be greater than zero")
	}
	if c.ResponseTimeout <= 0 {
		return fmt.Errorf("responsetimeout must be greater than zero")
	}
	if c.DelayReqMaxJitter < 0 || c.DelayReqMaxJitter >= c.ResponseTimeout {
		return fmt.Errorf("delayreqmaxjitter must be 0 or positive but less than responsetimeout")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queuesize must be greater than zero")
	}
	if err := c.Servo.Validate(); err != nil {
		return fmt.Errorf("invalid servo config: %w", err)
	}
	if c.MonitoringPort < 0 {
		return fmt.Errorf("monitoringport must be 0 or positive")
	}
	if c.MetricsAggregationWindow <= 0 {
		return fmt.Errorf("metricsaggregationwindow must be greater than zero")
	}
	if c.Clock == ClockPHC && c.Timestamping != transport.HWTIMESTAMP {
		log.Warningf("disciplining %s with %s timestamps, offset will include timestamping error", c.Clock, c.Timestamping)
	}
	if c.Clock == ClockSystem && c.Timestamping != transport.SWTIMESTAMP {
		log.Warningf("disciplining %s with %s timestamps, offset will include timestamping error", c.Clock, c.Timestamping)
	}
	return nil
}

// TransportConfig returns transport settings derived from slave config
func (c *Config) TransportConfig() transport.Config {
	tc := transport.DefaultConfig(c.Iface)
	tc.Timestamping = c.Timestamping
	tc.DSCP = c.DSCP
	tc.Groups = make([]net.IP, 0, len(c.MulticastGroups))
	for _, g := range c.MulticastGroups {
		tc.Groups = append(tc.Groups, net.ParseIP(g))
	}
	return tc
}

// ReadConfig reads config from the file
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	cData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(cData, c)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// PrepareConfig prepares final version of config based on defaults, CLI flags and on-disk config, and validates resulting config
func PrepareConfig(cfgPath string, iface string, monitoringPort int, console bool, setFlags map[string]bool) (*Config, error) {
	cfg := DefaultConfig()
	var err error
	warn := func(name string) {
		log.Warningf("overriding %s from CLI flag", name)
	}
	if cfgPath != "" {
		cfg, err = ReadConfig(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", cfgPath, err)
		}
	}
	if setFlags["iface"] {
		warn("iface")
		cfg.Iface = iface
	}
	if setFlags["monitoringport"] {
		warn("monitoringPort")
		cfg.MonitoringPort = monitoringPort
	}
	if setFlags["console"] {
		warn("console")
		cfg.Console = console
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	log.Debugf("config: %+v", cfg)
	return cfg, nil
}
