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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsCounters(t *testing.T) {
	s := NewStats()
	s.UpdateCounterBy(CounterSync, 1)
	s.UpdateCounterBy(CounterSync, 2)
	s.SetCounter(CounterAddend, 3435973836)
	require.Equal(t, map[string]int64{
		CounterSync:   3,
		CounterAddend: 3435973836,
	}, s.GetCounters())

	// returned map is a copy
	c := s.GetCounters()
	c[CounterSync] = 42
	require.Equal(t, int64(3), s.GetCounters()[CounterSync])

	s.Reset()
	require.Equal(t, map[string]int64{
		CounterSync:   0,
		CounterAddend: 0,
	}, s.GetCounters())
}

func TestStatsAggregate(t *testing.T) {
	s := NewStats()
	s.Aggregate()
	require.Equal(t, map[string]int64{CounterWindowSamples: 0}, s.GetCounters())

	for _, v := range []int64{-100, 100, -100, 100} {
		s.AddOffset(v)
		s.AddPathDelay(5000)
	}
	s.Aggregate()
	c := s.GetCounters()
	require.Equal(t, int64(4), c[CounterWindowSamples])
	require.Equal(t, int64(0), c[CounterOffsetMean])
	require.Greater(t, c[CounterOffsetStddev], int64(99))
	require.Equal(t, int64(5000), c[CounterPathDelayMean])
	require.Equal(t, int64(0), c[CounterPathDelayStddev])

	// empty window keeps last published values
	s.Aggregate()
	c = s.GetCounters()
	require.Equal(t, int64(0), c[CounterWindowSamples])
	require.Equal(t, int64(5000), c[CounterPathDelayMean])
}

func TestStatsAggregateSingleSample(t *testing.T) {
	s := NewStats()
	s.AddOffset(42)
	s.AddPathDelay(7)
	s.Aggregate()
	c := s.GetCounters()
	require.Equal(t, int64(42), c[CounterOffsetMean])
	require.Equal(t, int64(0), c[CounterOffsetStddev])
	require.Equal(t, int64(7), c[CounterPathDelayMean])
}
