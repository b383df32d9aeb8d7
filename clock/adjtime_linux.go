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

	"golang.org/x/sys/unix"
)

// PPBToTimexPPM is what we use to convert PPB to PPM.
// man clock_adjtime(2):
// In struct timex, freq, ppsfreq, and stabil are ppm (parts per million) with a 16-bit fractional part.
const PPBToTimexPPM = 65.536

// DefaultMaxFreqPPB is used when clock doesn't report its tolerance
const DefaultMaxFreqPPB = 500000.0

// clock_adjtime modes from usr/include/linux/timex.h
const (
	AdjFrequency uint32 = 0x0002
	AdjMaxError  uint32 = 0x0004
	AdjStatus    uint32 = 0x0010
	AdjSetOffset uint32 = 0x0100
	AdjNano      uint32 = 0x2000
)

// SetSync clears STA_UNSYNC and max error so the kernel reports TIME_OK
func SetSync(clockid int32) (state int, err error) {
	tx := &unix.Timex{}
	tx.Modes = AdjStatus | AdjMaxError
	return unix.ClockAdjtime(clockid, tx)
}

// AdjFreqPPB adjusts clock frequency in PPB
func AdjFreqPPB(clockid int32, freqPPB float64) (state int, err error) {
	tx := &unix.Timex{}
	setFreq(tx, freqPPB)
	tx.Modes = AdjFrequency
	return unix.ClockAdjtime(clockid, tx)
}

// Step adds sec and nsec to the clock. nsec must be within [0, 1e9).
func Step(clockid int32, sec int64, nsec int32) (state int, err error) {
	if nsec < 0 || nsec >= 1000000000 {
		return 0, fmt.Errorf("nanoseconds %d out of range", nsec)
	}
	tx := &unix.Timex{}
	tx.Modes = AdjSetOffset | AdjNano
	// with ADJ_NANO the usec field holds nanoseconds
	setTime(tx, sec, int64(nsec))
	return unix.ClockAdjtime(clockid, tx)
}

// MaxFreqPPB returns maximum frequency adjustment supported by the clock
func MaxFreqPPB(clockid int32) (freqPPB float64, state int, err error) {
	tx := &unix.Timex{}
	state, err = unix.ClockAdjtime(clockid, tx)
	if err != nil {
		return 0.0, state, err
	}
	freqPPB = float64(tx.Tolerance) / PPBToTimexPPM
	if freqPPB == 0 {
		freqPPB = DefaultMaxFreqPPB
	}
	return freqPPB, state, nil
}
