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
	"fmt"

	"github.com/facebook/ptpslave/ptptime"
)

// State of the sync exchange
type State uint32

// States of the sync exchange
const (
	StateIdle State = iota
	StateWaitFollowUp
	StateWaitDelayResp
)

var stateToString = map[State]string{
	StateIdle:          "IDLE",
	StateWaitFollowUp:  "WAIT_FOLLOW_UP",
	StateWaitDelayResp: "WAIT_DELAY_RESP",
}

func (s State) String() string {
	if v, ok := stateToString[s]; ok {
		return v
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint32(s))
}

// SyncCycleData holds timestamps of one Sync/Delay_Req exchange
type SyncCycleData struct {
	T1 ptptime.Timestamp // master sent Sync
	T2 ptptime.Timestamp // we received Sync
	T3 ptptime.Timestamp // we sent Delay_Req
	T4 ptptime.Timestamp // master received Delay_Req
}

// Error returns clock error against the master, corrected by offset
func (d *SyncCycleData) Error(offset ptptime.Timestamp) ptptime.Timestamp {
	ms := d.T2.Sub(d.T1)
	sm := d.T4.Sub(d.T3)
	return ms.Sub(sm).Div(2).Sub(offset)
}

// MeanPathDelay returns one way delay assuming symmetric path
func (d *SyncCycleData) MeanPathDelay() ptptime.Timestamp {
	ms := d.T2.Sub(d.T1)
	sm := d.T4.Sub(d.T3)
	return ms.Add(sm).Div(2)
}
