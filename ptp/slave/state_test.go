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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/ptpslave/ptptime"
)

func TestStateString(t *testing.T) {
	require.Equal(t, "IDLE", StateIdle.String())
	require.Equal(t, "WAIT_FOLLOW_UP", StateWaitFollowUp.String())
	require.Equal(t, "WAIT_DELAY_RESP", StateWaitDelayResp.String())
	require.Equal(t, "UNKNOWN(42)", State(42).String())
}

func TestSyncCycleDataSymmetric(t *testing.T) {
	d := SyncCycleData{
		T1: ts(99, 999900000),
		T2: ts(100, 0),
		T3: ts(100, 50000),
		T4: ts(100, 150000),
	}
	require.True(t, d.Error(ptptime.Timestamp{}).IsZero())
	require.Equal(t, ts(-1, 999999900), d.Error(ts(0, 100)))
	require.Equal(t, int64(100000), d.MeanPathDelay().TotalNanoseconds())
}

func TestSyncCycleDataAsymmetric(t *testing.T) {
	// local clock is 30us ahead of the master, path delay is 20us
	d := SyncCycleData{
		T1: ts(10, 0),
		T2: ts(10, 50000),
		T3: ts(10, 500000000),
		T4: ts(10, 499990000),
	}
	require.Equal(t, int64(30000), d.Error(ptptime.Timestamp{}).TotalNanoseconds())
	require.Equal(t, int64(20000), d.MeanPathDelay().TotalNanoseconds())
}
