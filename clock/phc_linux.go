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

package clock

import (
	"fmt"
	"math"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// IfaceToPHCDevice returns path to PHC device associated with given network card iface
func IfaceToPHCDevice(iface string) (string, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return "", fmt.Errorf("failed to create socket for ioctl: %w", err)
	}
	defer unix.Close(fd)
	info, err := unix.IoctlGetEthtoolTsInfo(fd, iface)
	if err != nil {
		return "", fmt.Errorf("getting interface %s info: %w", iface, err)
	}
	if info.Phc_index < 0 {
		return "", fmt.Errorf("%s: no PHC support", iface)
	}
	return fmt.Sprintf("/dev/ptp%d", info.Phc_index), nil
}

// FDToClockID converts file descriptor of PHC device into dynamic clock id
func FDToClockID(fd uintptr) int32 {
	return int32((int(^fd) << 3) | 3)
}

// AdjClock is a Device backed by clock_adjtime(2).
// Addend is translated into frequency offset relative to the addend passed to Init.
type AdjClock struct {
	name    string
	clockID int32
	dev     *os.File
	nominal uint32
	maxFreq float64

	// clock_adjtime wrappers, replaced in tests
	readMaxFreq func(clockid int32) (float64, int, error)
	setSync     func(clockid int32) (int, error)
	adjFreq     func(clockid int32, freqPPB float64) (int, error)
	step        func(clockid int32, sec int64, nsec int32) (int, error)
}

func newAdjClock(name string, clockID int32, dev *os.File) *AdjClock {
	return &AdjClock{
		name:        name,
		clockID:     clockID,
		dev:         dev,
		readMaxFreq: MaxFreqPPB,
		setSync:     SetSync,
		adjFreq:     AdjFreqPPB,
		step:        Step,
	}
}

// NewSystem returns Device adjusting CLOCK_REALTIME
func NewSystem() *AdjClock {
	return newAdjClock("CLOCK_REALTIME", unix.CLOCK_REALTIME, nil)
}

// NewPHC opens PHC of the iface
func NewPHC(iface string) (*AdjClock, error) {
	device, err := IfaceToPHCDevice(iface)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening device %q: %w", device, err)
	}
	return newAdjClock(device, FDToClockID(f.Fd()), f), nil
}

// Close releases PHC device
func (c *AdjClock) Close() error {
	if c.dev == nil {
		return nil
	}
	return c.dev.Close()
}

// checkState reports a clock left in a state other than TIME_OK.
// CLOCK_REALTIME is TIME_ERROR while STA_UNSYNC is set, adjustment still succeeds.
func (c *AdjClock) checkState(state int, err error, op string) error {
	if err == nil && state != unix.TIME_OK {
		log.Warningf("clock %s state %d is not TIME_OK after %s", c.name, state, op)
	}
	return err
}

// Init takes addend as nominal and resets clock frequency
func (c *AdjClock) Init(incrementNs, addend uint32) error {
	maxFreq, _, err := c.readMaxFreq(c.clockID)
	if err != nil {
		log.Warningf("reading max frequency of %s: %v, using default", c.name, err)
		maxFreq = DefaultMaxFreqPPB
	}
	c.maxFreq = maxFreq
	c.nominal = addend
	if c.clockID == unix.CLOCK_REALTIME {
		state, err := c.setSync(c.clockID)
		if err := c.checkState(state, err, "clearing unsync status"); err != nil {
			log.Warningf("clearing unsync status of %s: %v", c.name, err)
		}
	}
	log.Infof("clock %s: increment %dns, nominal addend 0x%X, max frequency %.0f PPB", c.name, incrementNs, addend, maxFreq)
	return c.SetAddend(addend)
}

// SetAddend converts addend into PPB and applies it
func (c *AdjClock) SetAddend(addend uint32) error {
	ppb := AddendToPPB(addend, c.nominal)
	ppb = math.Max(-c.maxFreq, math.Min(c.maxFreq, ppb))
	state, err := c.adjFreq(c.clockID, ppb)
	return c.checkState(state, err, "adjusting frequency")
}

// JumpClock steps the clock
func (c *AdjClock) JumpClock(sec int64, ns int32) error {
	state, err := c.step(c.clockID, sec, ns)
	return c.checkState(state, err, "stepping")
}
