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
	"math"
)

const twoPow32 = float64(1 << 32)

// Device is a clock we can tune and step
type Device interface {
	// Init sets tick increment and initial addend
	Init(incrementNs, addend uint32) error
	// SetAddend changes clock rate
	SetAddend(addend uint32) error
	// JumpClock adds signed delta to the clock. ns is normalized, 0 <= ns < 1e9.
	JumpClock(sec int64, ns int32) error
}

// Oscillator describes the clock source and the tick increment we configure
type Oscillator struct {
	FrequencyHz float64 `yaml:"frequencyhz"`
	IncrementNs uint32  `yaml:"incrementns"`
}

// DefaultOscillator is 25MHz crystal ticking 50ns
var DefaultOscillator = Oscillator{
	FrequencyHz: 25000000,
	IncrementNs: 50,
}

// TickFrequencyHz is how often tick counter advances
func (o Oscillator) TickFrequencyHz() float64 {
	return 1e9 / float64(o.IncrementNs)
}

// NominalAddend is the addend making the tick counter run at exactly TickFrequencyHz
func (o Oscillator) NominalAddend() uint32 {
	v := twoPow32 / (o.FrequencyHz / o.TickFrequencyHz())
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// AddendPerPPB is how much addend changes per one PPB of frequency correction
func (o Oscillator) AddendPerPPB() float64 {
	return twoPow32 / (float64(o.IncrementNs) * o.FrequencyHz)
}

// AdjustAddend applies frequency correction in PPB to addend, clamping to uint32 range
func AdjustAddend(addend uint32, corrPPB, perPPB float64) uint32 {
	v := float64(addend) + corrPPB*perPPB
	if v <= 0 {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// AddendToPPB converts addend into frequency offset in PPB relative to nominal addend
func AddendToPPB(addend, nominal uint32) float64 {
	if nominal == 0 {
		return 0
	}
	return (float64(addend)/float64(nominal) - 1) * 1e9
}
