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

package stats

import (
	"math"
	"sync"

	"github.com/eclesh/welford"
)

// Counter names reported by the slave
const (
	CounterSync            = "ptp.sync.rx"
	CounterFollowUp        = "ptp.followup.rx"
	CounterDelayReq        = "ptp.delayreq.tx"
	CounterDelayResp       = "ptp.delayresp.rx"
	CounterIgnored         = "ptp.rx.ignored"
	CounterMalformed       = "ptp.rx.malformed"
	CounterQueueDrops      = "ptp.rx.queue_drops"
	CounterTimeouts        = "ptp.timeouts"
	CounterCycles          = "ptp.cycles"
	CounterJumps           = "ptp.clock.jumps"
	CounterClockErrors     = "ptp.clock.errors"
	CounterTXErrors        = "ptp.tx.errors"
	CounterResets          = "ptp.resets"
	CounterAddend          = "ptp.addend"
	CounterOffset          = "ptp.offset_ns"
	CounterPathDelay       = "ptp.path_delay_ns"
	CounterServoState      = "ptp.servo.state"
	CounterState           = "ptp.state"
	CounterOffsetMean      = "ptp.offset_ns.mean"
	CounterOffsetStddev    = "ptp.offset_ns.stddev"
	CounterPathDelayMean   = "ptp.path_delay_ns.mean"
	CounterPathDelayStddev = "ptp.path_delay_ns.stddev"
	CounterWindowSamples   = "ptp.window.samples"
)

// StatsServer is what the slave reports into
type StatsServer interface {
	Reset()
	SetCounter(key string, val int64)
	UpdateCounterBy(key string, count int64)
	AddOffset(ns int64)
	AddPathDelay(ns int64)
}

// Stats keeps counters and windowed offset/path delay statistics
type Stats struct {
	mux       sync.Mutex
	counters  map[string]int64
	offset    *welford.Stats
	pathDelay *welford.Stats
	samples   int64
}

// NewStats created new instance of Stats
func NewStats() *Stats {
	return &Stats{
		counters:  map[string]int64{},
		offset:    welford.New(),
		pathDelay: welford.New(),
	}
}

// UpdateCounterBy will increment counter
func (s *Stats) UpdateCounterBy(key string, count int64) {
	s.mux.Lock()
	s.counters[key] += count
	s.mux.Unlock()
}

// SetCounter will set a counter to the provided value
func (s *Stats) SetCounter(key string, val int64) {
	s.mux.Lock()
	s.counters[key] = val
	s.mux.Unlock()
}

// GetCounters returns a copy of counters
func (s *Stats) GetCounters() map[string]int64 {
	ret := make(map[string]int64)
	s.mux.Lock()
	for key, val := range s.counters {
		ret[key] = val
	}
	s.mux.Unlock()
	return ret
}

// Reset all the values of counters and drops the current window
func (s *Stats) Reset() {
	s.mux.Lock()
	for k := range s.counters {
		s.counters[k] = 0
	}
	s.offset = welford.New()
	s.pathDelay = welford.New()
	s.samples = 0
	s.mux.Unlock()
}

// AddOffset adds offset sample to the current window
func (s *Stats) AddOffset(ns int64) {
	s.mux.Lock()
	s.offset.Add(float64(ns))
	s.samples++
	s.mux.Unlock()
}

// AddPathDelay adds path delay sample to the current window
func (s *Stats) AddPathDelay(ns int64) {
	s.mux.Lock()
	s.pathDelay.Add(float64(ns))
	s.mux.Unlock()
}

// Aggregate publishes window statistics as counters and starts a new window.
// Empty window leaves previously published values alone.
func (s *Stats) Aggregate() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.counters[CounterWindowSamples] = s.samples
	if s.samples == 0 {
		return
	}
	s.counters[CounterOffsetMean] = int64(s.offset.Mean())
	s.counters[CounterOffsetStddev] = stddev(s.offset, s.samples)
	s.counters[CounterPathDelayMean] = int64(s.pathDelay.Mean())
	s.counters[CounterPathDelayStddev] = stddev(s.pathDelay, s.samples)
	s.offset = welford.New()
	s.pathDelay = welford.New()
	s.samples = 0
}

func stddev(w *welford.Stats, n int64) int64 {
	if n < 2 {
		return 0
	}
	v := w.Stddev()
	if math.IsNaN(v) {
		return 0
	}
	return int64(v)
}
