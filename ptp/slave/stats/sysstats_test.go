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
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
)

var expectedNonAggregateKeys = []string{
	"process.uptime", "process.cpu_pct", "process.rss", "process.vms", "process.num_fds", "process.num_threads",
	"runtime.goroutines", "runtime.mem.heap.alloc", "runtime.mem.heap.inuse", "runtime.mem.sys",
	"runtime.mem.gc.count", "runtime.mem.gc.pause_total",
}
var expectedAggKeys = []string{
	"runtime.mem.mallocs.sum.1", "runtime.mem.mallocs.rate.1", "runtime.gc.pause_ns.sum.1", "runtime.gc.pause_ns.rate.1",
}

func TestSysStats(t *testing.T) {
	stats := SysStats{}
	interval := time.Second

	collected, err := stats.CollectRuntimeStats(interval)
	require.NoError(t, err)
	require.ElementsMatch(t, expectedNonAggregateKeys, maps.Keys(collected))

	// second run has rates too
	collected, err = stats.CollectRuntimeStats(interval)
	require.NoError(t, err)
	require.ElementsMatch(t, append(expectedNonAggregateKeys, expectedAggKeys...), maps.Keys(collected))
}

func TestSetRate(t *testing.T) {
	stats := make(map[string]int64)
	setRate("test", stats, 20, 1, 5*time.Second)
	require.Equal(t, map[string]int64{
		"test.sum.5":  19,
		"test.rate.5": 3,
	}, stats)

	// counter went backwards
	stats = make(map[string]int64)
	setRate("test", stats, 1, 20, 5*time.Second)
	require.Empty(t, stats)
}
