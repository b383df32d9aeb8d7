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

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"

	ptp "github.com/facebook/ptpslave/ptp/protocol"
	"github.com/facebook/ptpslave/ptptime"
)

const cycleHeader = "T1 [s] | T1 [ns] | T4 [s] | T4 [ns] | Dt [s] | Dt [ns] | Dt [tick] | Addend"

func logSent(t ptp.MessageType, msg string, v ...interface{}) {
	log.Debug(color.GreenString("slave -> %s (%s)", t, fmt.Sprintf(msg, v...)))
}

func logReceive(t ptp.MessageType, msg string, v ...interface{}) {
	log.Debug(color.BlueString("master -> %s (%s)", t, fmt.Sprintf(msg, v...)))
}

func logCycle(c *SyncCycleData, e ptptime.Timestamp, ticksPerSecond int64, addend uint32) {
	log.Infof("%d %d %d %d %d %d %d 0x%X",
		c.T1.Seconds, c.T1.Nanoseconds,
		c.T4.Seconds, c.T4.Nanoseconds,
		e.Seconds, e.Nanoseconds,
		e.Ticks(ticksPerSecond), addend)
}
