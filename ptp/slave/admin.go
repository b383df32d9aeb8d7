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
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/ptpslave/clock"
	"github.com/facebook/ptpslave/servo"
)

// Log channels which can be switched at runtime
const (
	LogCycle      = "def"
	LogCorrection = "corr"
)

// Status is a snapshot of the slave served over HTTP and printed by 'ptp status'
type Status struct {
	ClockIdentity string  `json:"clock_identity"`
	State         string  `json:"state"`
	ServoState    string  `json:"servo_state"`
	Addend        uint32  `json:"addend"`
	NominalAddend uint32  `json:"nominal_addend"`
	FrequencyPPB  float64 `json:"frequency_ppb"`
	OffsetNs      int64   `json:"offset_ns"`
	Kp            float64 `json:"kp"`
	Kd            float64 `json:"kd"`
	LogCycle      bool    `json:"log_cycle"`
	LogCorrection bool    `json:"log_correction"`
}

// Reset brings the slave to the initial state: Idle, sequence counters and servo reset,
// nominal addend written to the clock
func (s *Slave) Reset(ctx context.Context) error {
	if err := s.submit(ctx, s.reset); err != nil {
		return err
	}
	log.Info("state machine has been reset")
	return nil
}

// SetOffset sets constant offset in ns subtracted from measured error
func (s *Slave) SetOffset(ns int64) {
	s.offset.Store(ns)
}

// Offset returns configured offset in ns
func (s *Slave) Offset() int64 {
	return s.offset.Load()
}

// SetServoGains changes PD gains, both must be positive
func (s *Slave) SetServoGains(kp, kd float64) error {
	if !(kp > 0) || !(kd > 0) {
		return fmt.Errorf("kp=%v, kd=%v: %w", kp, kd, ErrInvalidGain)
	}
	s.servo.SetGains(kp, kd)
	return nil
}

// ServoGains returns PD gains
func (s *Slave) ServoGains() (kp, kd float64) {
	return s.servo.Gains()
}

// SetLogging switches log channel on or off
func (s *Slave) SetLogging(channel string, on bool) error {
	switch channel {
	case LogCycle:
		if on && !s.logCycle.Load() {
			log.Info(cycleHeader)
		}
		s.logCycle.Store(on)
	case LogCorrection:
		s.logCorr.Store(on)
	default:
		return fmt.Errorf("unknown log channel %q", channel)
	}
	return nil
}

// Logging returns whether log channel is on
func (s *Slave) Logging(channel string) bool {
	switch channel {
	case LogCycle:
		return s.logCycle.Load()
	case LogCorrection:
		return s.logCorr.Load()
	}
	return false
}

// Addend returns current addend
func (s *Slave) Addend() uint32 {
	return s.addend.Load()
}

// State returns current state of the exchange
func (s *Slave) State() State {
	return State(s.state.Load())
}

// ServoState returns state of the servo after the last cycle
func (s *Slave) ServoState() servo.State {
	return servo.State(s.servoState.Load())
}

// Status returns current Status
func (s *Slave) Status() *Status {
	kp, kd := s.ServoGains()
	addend := s.Addend()
	return &Status{
		ClockIdentity: s.clockID.String(),
		State:         s.State().String(),
		ServoState:    s.ServoState().String(),
		Addend:        addend,
		NominalAddend: s.nominal,
		FrequencyPPB:  clock.AddendToPPB(addend, s.nominal),
		OffsetNs:      s.Offset(),
		Kp:            kp,
		Kd:            kd,
		LogCycle:      s.Logging(LogCycle),
		LogCorrection: s.Logging(LogCorrection),
	}
}
