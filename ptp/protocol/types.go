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

package protocol

import (
	"encoding/binary"
	"fmt"
	"net"
)

// MessageType is type for Message Types
type MessageType uint8

// Message types the slave deals with, as per Table 36 Values of messageType field
const (
	MessageSync      MessageType = 0x0
	MessageDelayReq  MessageType = 0x1
	MessageFollowUp  MessageType = 0x8
	MessageDelayResp MessageType = 0x9
)

// MessageTypeToString is a map from MessageType to string
var MessageTypeToString = map[MessageType]string{
	MessageSync:      "SYNC",
	MessageDelayReq:  "DELAY_REQ",
	MessageFollowUp:  "FOLLOW_UP",
	MessageDelayResp: "DELAY_RESP",
}

func (m MessageType) String() string {
	if s, ok := MessageTypeToString[m]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(m))
}

// ProbeMsgType reads first byte of data and returns MessageType stored in its low nibble
func ProbeMsgType(data []byte) (MessageType, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("not enough data to probe message type: %w", ErrShortBuffer)
	}
	return MessageType(data[0] & 0x0f), nil
}

// Control field values, kept for compatibility with PTPv1 hardware
const (
	ControlSync      uint8 = 0
	ControlDelayReq  uint8 = 1
	ControlFollowUp  uint8 = 2
	ControlDelayResp uint8 = 3
)

// Version is the PTP version we speak
const Version uint8 = 2

// LogMessageIntervalUnused is sent in messages where the interval has no meaning
const LogMessageIntervalUnused int8 = 0x7f

// UDP ports
const (
	PortEvent   = 319
	PortGeneral = 320
)

// Multicast groups for PTP over IPv4
var (
	// DefaultMulticastGroup is used for all messages except peer delay ones
	DefaultMulticastGroup = net.IPv4(224, 0, 1, 129)
	// PeerDelayMulticastGroup is used by peer delay mechanism
	PeerDelayMulticastGroup = net.IPv4(224, 0, 0, 107)
)

// ClockIdentity uniquely identifies a PTP clock
type ClockIdentity uint64

// String formats ClockIdentity same way ptp4l pmc client does
func (c ClockIdentity) String() string {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(c))
	return fmt.Sprintf("%02x%02x%02x.%02x%02x.%02x%02x%02x",
		b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7],
	)
}

// NewClockIdentity creates new ClockIdentity from MAC address.
// EUI-48 addresses are expanded by inserting 0xFFFE in the middle.
func NewClockIdentity(mac net.HardwareAddr) (ClockIdentity, error) {
	var b [8]byte
	switch len(mac) {
	case 6:
		copy(b[0:3], mac[0:3])
		b[3] = 0xff
		b[4] = 0xfe
		copy(b[5:8], mac[3:6])
	case 8:
		copy(b[:], mac)
	default:
		return 0, fmt.Errorf("unsupported MAC %v, must be either EUI48 or EUI64", mac)
	}
	return ClockIdentity(binary.BigEndian.Uint64(b[:])), nil
}

// Flags is the decoded flagField of the PTP header
type Flags struct {
	Security           bool
	ProfileSpecific2   bool
	ProfileSpecific1   bool
	Unicast            bool
	TwoStep            bool
	AlternateMaster    bool
	FrequencyTraceable bool
	TimeTraceable      bool
	PTPTimescale       bool
	UTCOffsetValid     bool
	LeapIndicator59    bool
	LeapIndicator61    bool
}

// bit positions within flagField, Table 37 Values of flagField
const (
	flagLeap61             = 0
	flagLeap59             = 1
	flagUTCOffsetValid     = 2
	flagPTPTimescale       = 3
	flagTimeTraceable      = 4
	flagFrequencyTraceable = 5
	flagAlternateMaster    = 8
	flagTwoStep            = 9
	flagUnicast            = 10
	flagProfileSpecific1   = 13
	flagProfileSpecific2   = 14
	flagSecurity           = 15
)

func bit(v uint16, pos uint) bool {
	return (v>>pos)&1 == 1
}

// ParseFlags unpacks flagField
func ParseFlags(v uint16) Flags {
	return Flags{
		Security:           bit(v, flagSecurity),
		ProfileSpecific2:   bit(v, flagProfileSpecific2),
		ProfileSpecific1:   bit(v, flagProfileSpecific1),
		Unicast:            bit(v, flagUnicast),
		TwoStep:            bit(v, flagTwoStep),
		AlternateMaster:    bit(v, flagAlternateMaster),
		FrequencyTraceable: bit(v, flagFrequencyTraceable),
		TimeTraceable:      bit(v, flagTimeTraceable),
		PTPTimescale:       bit(v, flagPTPTimescale),
		UTCOffsetValid:     bit(v, flagUTCOffsetValid),
		LeapIndicator59:    bit(v, flagLeap59),
		LeapIndicator61:    bit(v, flagLeap61),
	}
}

// Bits packs flags back into flagField
func (f Flags) Bits() uint16 {
	var v uint16
	set := func(b bool, pos uint) {
		if b {
			v |= 1 << pos
		}
	}
	set(f.Security, flagSecurity)
	set(f.ProfileSpecific2, flagProfileSpecific2)
	set(f.ProfileSpecific1, flagProfileSpecific1)
	set(f.Unicast, flagUnicast)
	set(f.TwoStep, flagTwoStep)
	set(f.AlternateMaster, flagAlternateMaster)
	set(f.FrequencyTraceable, flagFrequencyTraceable)
	set(f.TimeTraceable, flagTimeTraceable)
	set(f.PTPTimescale, flagPTPTimescale)
	set(f.UTCOffsetValid, flagUTCOffsetValid)
	set(f.LeapIndicator59, flagLeap59)
	set(f.LeapIndicator61, flagLeap61)
	return v
}
