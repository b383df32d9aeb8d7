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
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/ptpslave/ptptime"
)

// FreeRunning is a Device which never touches any clock, it only remembers what was asked
type FreeRunning struct {
	sync.Mutex
	incrementNs uint32
	addend      uint32
	jumps       int
	offset      ptptime.Timestamp
}

// NewFreeRunning returns new FreeRunning device
func NewFreeRunning() *FreeRunning {
	return &FreeRunning{}
}

// Init remembers increment and addend
func (c *FreeRunning) Init(incrementNs, addend uint32) error {
	c.Lock()
	defer c.Unlock()
	c.incrementNs = incrementNs
	c.addend = addend
	log.Debugf("free running clock: increment %dns, addend 0x%X", incrementNs, addend)
	return nil
}

// SetAddend remembers addend
func (c *FreeRunning) SetAddend(addend uint32) error {
	c.Lock()
	defer c.Unlock()
	c.addend = addend
	return nil
}

// JumpClock accumulates requested jumps
func (c *FreeRunning) JumpClock(sec int64, ns int32) error {
	c.Lock()
	defer c.Unlock()
	c.jumps++
	c.offset = c.offset.Add(ptptime.Timestamp{Seconds: sec, Nanoseconds: ns})
	log.Debugf("free running clock: jump by %s", ptptime.Timestamp{Seconds: sec, Nanoseconds: ns})
	return nil
}

// Addend returns last written addend
func (c *FreeRunning) Addend() uint32 {
	c.Lock()
	defer c.Unlock()
	return c.addend
}

// IncrementNs returns tick increment
func (c *FreeRunning) IncrementNs() uint32 {
	c.Lock()
	defer c.Unlock()
	return c.incrementNs
}

// Jumps returns number of jumps and their sum
func (c *FreeRunning) Jumps() (int, ptptime.Timestamp) {
	c.Lock()
	defer c.Unlock()
	return c.jumps, c.offset
}
