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
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facebook/ptpslave/clock"
	"github.com/facebook/ptpslave/transport"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "ptpslave.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig("/does/not/exist")
	require.Error(t, err)
}

func TestReadConfigDefaults(t *testing.T) {
	cfg, err := ReadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(writeConfig(t, `iface: eth1
timestamping: software
clock: system
oscillator:
  frequencyhz: 125000000
  incrementns: 8
multicastgroups:
  - 224.0.1.129
dscp: 46
responsetimeout: 1s
delayreqmaxjitter: 200ms
queuesize: 64
offsetns: -350
servo:
  kp: 0.3
  kd: 0.9
log:
  cycle: true
monitoringport: 9000
metricsaggregationwindow: 10s
console: true
`))
	require.NoError(t, err)
	want := &Config{
		Iface:        "eth1",
		Timestamping: transport.SWTIMESTAMP,
		Clock:        ClockSystem,
		Oscillator: clock.Oscillator{
			FrequencyHz: 125000000,
			IncrementNs: 8,
		},
		MulticastGroups:          []string{"224.0.1.129"},
		DSCP:                     46,
		PortNumber:               1,
		ResponseTimeout:          time.Second,
		DelayReqMaxJitter:        200 * time.Millisecond,
		QueueSize:                64,
		OffsetNs:                 -350,
		Servo:                    ServoConfig{Kp: 0.3, Kd: 0.9},
		Log:                      LogConfig{Cycle: true},
		MonitoringPort:           9000,
		MetricsAggregationWindow: 10 * time.Second,
		Console:                  true,
	}
	require.Equal(t, want, cfg)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"no iface":         func(c *Config) { c.Iface = "" },
		"timestamping":     func(c *Config) { c.Timestamping = "magic" },
		"clock":            func(c *Config) { c.Clock = "sundial" },
		"frequency":        func(c *Config) { c.Oscillator.FrequencyHz = 0 },
		"increment":        func(c *Config) { c.Oscillator.IncrementNs = 0 },
		"unicast group":    func(c *Config) { c.MulticastGroups = []string{"10.0.0.1"} },
		"garbage group":    func(c *Config) { c.MulticastGroups = []string{"ff02::181"} },
		"dscp":             func(c *Config) { c.DSCP = 64 },
		"port":             func(c *Config) { c.PortNumber = 0 },
		"timeout":          func(c *Config) { c.ResponseTimeout = 0 },
		"jitter":           func(c *Config) { c.DelayReqMaxJitter = c.ResponseTimeout },
		"negative jitter":  func(c *Config) { c.DelayReqMaxJitter = -time.Millisecond },
		"queue":            func(c *Config) { c.QueueSize = 0 },
		"kp":               func(c *Config) { c.Servo.Kp = 0 },
		"kd":               func(c *Config) { c.Servo.Kd = -1 },
		"monitoring port":  func(c *Config) { c.MonitoringPort = -1 },
		"aggregation":      func(c *Config) { c.MetricsAggregationWindow = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(c)
			require.Error(t, c.Validate())
		})
	}
}

func TestConfigValidateServoGains(t *testing.T) {
	c := DefaultConfig()
	c.Servo.Kd = 0
	require.ErrorIs(t, c.Validate(), ErrInvalidGain)
}

func TestPrepareConfig(t *testing.T) {
	path := writeConfig(t, "iface: eth1\nmonitoringport: 9000\n")
	cfg, err := PrepareConfig(path, "eth2", 0, true, map[string]bool{"iface": true, "console": true})
	require.NoError(t, err)
	require.Equal(t, "eth2", cfg.Iface)
	require.Equal(t, 9000, cfg.MonitoringPort)
	require.True(t, cfg.Console)

	cfg, err = PrepareConfig("", "eth3", 4321, false, map[string]bool{"monitoringport": true})
	require.NoError(t, err)
	require.Equal(t, "eth0", cfg.Iface)
	require.Equal(t, 4321, cfg.MonitoringPort)

	_, err = PrepareConfig("", "", 0, false, map[string]bool{"iface": true})
	require.Error(t, err)
	_, err = PrepareConfig("/does/not/exist", "", 0, false, nil)
	require.Error(t, err)
}

func TestTransportConfig(t *testing.T) {
	c := DefaultConfig()
	c.DSCP = 10
	c.Timestamping = transport.SWTIMESTAMP
	tc := c.TransportConfig()
	require.Equal(t, "eth0", tc.Iface)
	require.Equal(t, transport.SWTIMESTAMP, tc.Timestamping)
	require.Equal(t, 10, tc.DSCP)
	require.Len(t, tc.Groups, 2)
	require.True(t, tc.Groups[0].Equal(net.ParseIP("224.0.1.129")))
	require.True(t, tc.Groups[1].Equal(net.ParseIP("224.0.0.107")))
	require.NoError(t, tc.Validate())
}
