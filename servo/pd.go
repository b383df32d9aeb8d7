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

package servo

import (
	"math"
	"sync/atomic"
)

// Default PD gains, tuned for 25MHz oscillator and 1s sync interval
const (
	DefaultKp = 0.5 * 0.476
	DefaultKd = 2.0 * 0.476
)

// PD is a proportional-derivative controller turning time error into frequency correction.
// Run and Reset must be called from one goroutine, gains can be changed from any.
type PD struct {
	kp atomic.Uint64
	kd atomic.Uint64

	prev    int64
	hasPrev bool
}

// NewPD returns PD servo with given gains
func NewPD(kp, kd float64) *PD {
	s := &PD{}
	s.SetGains(kp, kd)
	return s
}

// SetGains changes proportional and derivative gains.
// Values are not checked here.
func (s *PD) SetGains(kp, kd float64) {
	s.kp.Store(math.Float64bits(kp))
	s.kd.Store(math.Float64bits(kd))
}

// Gains returns current proportional and derivative gains
func (s *PD) Gains() (kp, kd float64) {
	return math.Float64frombits(s.kp.Load()), math.Float64frombits(s.kd.Load())
}

// Run takes time error in nanoseconds and returns frequency correction in PPB.
// First sample after creation or Reset only primes the derivative term and yields 0.
func (s *PD) Run(errNs int64) float64 {
	if !s.hasPrev {
		s.prev = errNs
		s.hasPrev = true
		return 0
	}
	kp, kd := s.Gains()
	e := float64(errNs)
	d := float64(errNs - s.prev)
	s.prev = errNs
	return -(kp*e + kd*d)
}

// Reset forgets previous sample, gains stay
func (s *PD) Reset() {
	s.prev = 0
	s.hasPrev = false
}

// State returns StateInit until the first sample arrives
func (s *PD) State() State {
	if !s.hasPrev {
		return StateInit
	}
	return StateLocked
}
