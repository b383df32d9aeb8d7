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

// Package ptptime implements the signed {seconds, nanoseconds} time value
// used by the PTP slave for timestamps and time intervals.
//
// All arithmetic pivots on the total nanosecond count held in an int64,
// which covers roughly ±292 years. Synchronization cycle durations and
// clock errors are many orders of magnitude smaller, so no overflow
// checking is done.
package ptptime

import (
	"fmt"
	"time"
)

// NanosPerSecond is the number of nanoseconds in one second
const NanosPerSecond = int64(time.Second)

// Timestamp is a signed time value split into seconds and nanoseconds.
// A normalized Timestamp has 0 <= Nanoseconds < 1e9, with the sign carried
// by Seconds.
type Timestamp struct {
	Seconds     int64
	Nanoseconds int32
}

// FromNanoseconds builds a normalized Timestamp from a total nanosecond count
func FromNanoseconds(ns int64) Timestamp {
	sec := ns / NanosPerSecond
	rem := ns % NanosPerSecond
	if rem < 0 {
		sec--
		rem += NanosPerSecond
	}
	return Timestamp{Seconds: sec, Nanoseconds: int32(rem)}
}

// FromTime converts time.Time to Timestamp
func FromTime(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanoseconds: int32(t.Nanosecond())}
}

// FromDuration converts time.Duration to Timestamp
func FromDuration(d time.Duration) Timestamp {
	return FromNanoseconds(int64(d))
}

// TotalNanoseconds returns total number of nanoseconds
func (t Timestamp) TotalNanoseconds() int64 {
	return t.Seconds*NanosPerSecond + int64(t.Nanoseconds)
}

// Normalize carries nanosecond overflow and underflow into seconds.
// The total value stays the same.
func (t Timestamp) Normalize() Timestamp {
	return FromNanoseconds(t.TotalNanoseconds())
}

// Add returns t + o
func (t Timestamp) Add(o Timestamp) Timestamp {
	return FromNanoseconds(t.TotalNanoseconds() + o.TotalNanoseconds())
}

// Sub returns t - o
func (t Timestamp) Sub(o Timestamp) Timestamp {
	return FromNanoseconds(t.TotalNanoseconds() - o.TotalNanoseconds())
}

// Div divides the total nanosecond count by n. Integer division,
// so dividing by 2 loses at most half a nanosecond.
func (t Timestamp) Div(n int64) Timestamp {
	return FromNanoseconds(t.TotalNanoseconds() / n)
}

// Neg returns -t
func (t Timestamp) Neg() Timestamp {
	return FromNanoseconds(-t.TotalNanoseconds())
}

// WholeSeconds returns the whole-second part of the total, truncated toward zero.
// Unlike Seconds of a normalized value, -1ns has zero whole seconds.
func (t Timestamp) WholeSeconds() int64 {
	return t.TotalNanoseconds() / NanosPerSecond
}

// Ticks converts timestamp into a number of ticks of a clock running at ticksPerSecond
func (t Timestamp) Ticks(ticksPerSecond int64) int64 {
	n := t.Normalize()
	return n.Seconds*ticksPerSecond + int64(n.Nanoseconds)*ticksPerSecond/NanosPerSecond
}

// IsZero reports whether t is zero
func (t Timestamp) IsZero() bool {
	return t.TotalNanoseconds() == 0
}

// Time converts Timestamp to time.Time
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanoseconds))
}

// Duration converts Timestamp to time.Duration
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t.TotalNanoseconds())
}

func (t Timestamp) String() string {
	n := t.Normalize()
	if n.Seconds < 0 {
		// -1.5s is {-2, 500000000}
		abs := n.Neg()
		return fmt.Sprintf("-%d.%09d", abs.Seconds, abs.Nanoseconds)
	}
	return fmt.Sprintf("%d.%09d", n.Seconds, n.Nanoseconds)
}
