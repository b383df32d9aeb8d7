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
	"errors"
	"fmt"

	"github.com/facebook/ptpslave/ptptime"
)

// ErrShortBuffer is returned when a packet is too short for the fields we need
var ErrShortBuffer = errors.New("buffer too short")

// Sizes of wire structures
const (
	HeaderLength    = 34
	TimestampLength = 10
	// DelayReqLength is the size of Delay_Req, header plus origin timestamp
	DelayReqLength = HeaderLength + TimestampLength
	// SyncLength and FollowUpLength carry one timestamp as well
	SyncLength     = HeaderLength + TimestampLength
	FollowUpLength = HeaderLength + TimestampLength
	// DelayRespLength adds requesting port identity after the receive timestamp
	DelayRespLength = HeaderLength + TimestampLength + 10
)

// offsets of header fields
const (
	offMsgType       = 0
	offVersion       = 1
	offLength        = 2
	offDomain        = 4
	offFlags         = 6
	offCorrection    = 8
	offClockIdentity = 20
	offPortID        = 28
	offSequenceID    = 30
	offControl       = 32
	offLogInterval   = 33

	offReqClockIdentity = 44
	offReqPortID        = 52
)

// Header is the decoded common PTP message header
type Header struct {
	TransportSpecific  uint8
	MessageType        MessageType
	Version            uint8
	MessageLength      uint16
	DomainNumber       uint8
	Flags              Flags
	CorrectionNs       int64
	CorrectionSubNs    uint16
	ClockIdentity      ClockIdentity
	SourcePortID       uint16
	SequenceID         uint16
	Control            uint8
	LogMessageInterval int8
}

// Correction returns correction field as a Timestamp, ignoring sub-nanoseconds
func (h *Header) Correction() ptptime.Timestamp {
	return ptptime.FromNanoseconds(h.CorrectionNs)
}

// CheckLength makes sure b holds at least n bytes
func CheckLength(b []byte, n int) error {
	if len(b) < n {
		return fmt.Errorf("need %d bytes, got %d: %w", n, len(b), ErrShortBuffer)
	}
	return nil
}

// DecodeHeader parses fixed header fields from b.
// b must be at least HeaderLength bytes long, the caller is responsible for checking that.
func DecodeHeader(b []byte) Header {
	raw := int64(binary.BigEndian.Uint64(b[offCorrection:]))
	return Header{
		TransportSpecific:  b[offMsgType] >> 4,
		MessageType:        MessageType(b[offMsgType] & 0x0f),
		Version:            b[offVersion],
		MessageLength:      binary.BigEndian.Uint16(b[offLength:]),
		DomainNumber:       b[offDomain],
		Flags:              ParseFlags(binary.BigEndian.Uint16(b[offFlags:])),
		CorrectionNs:       raw >> 16,
		CorrectionSubNs:    uint16(raw & 0xffff),
		ClockIdentity:      ClockIdentity(binary.BigEndian.Uint64(b[offClockIdentity:])),
		SourcePortID:       binary.BigEndian.Uint16(b[offPortID:]),
		SequenceID:         binary.BigEndian.Uint16(b[offSequenceID:]),
		Control:            b[offControl],
		LogMessageInterval: int8(b[offLogInterval]),
	}
}

// EncodeHeader writes h into the first HeaderLength bytes of b.
// Flags are always written as zero and the sub-nanosecond part of the correction
// is dropped, receivers we talk to don't look at either.
func EncodeHeader(b []byte, h *Header) {
	b[offMsgType] = h.TransportSpecific<<4 | uint8(h.MessageType)&0x0f
	b[offVersion] = h.Version
	binary.BigEndian.PutUint16(b[offLength:], h.MessageLength)
	b[offDomain] = h.DomainNumber
	b[offDomain+1] = 0
	binary.BigEndian.PutUint16(b[offFlags:], 0)
	binary.BigEndian.PutUint64(b[offCorrection:], uint64(h.CorrectionNs<<16))
	binary.BigEndian.PutUint32(b[offCorrection+8:], 0)
	binary.BigEndian.PutUint64(b[offClockIdentity:], uint64(h.ClockIdentity))
	binary.BigEndian.PutUint16(b[offPortID:], h.SourcePortID)
	binary.BigEndian.PutUint16(b[offSequenceID:], h.SequenceID)
	b[offControl] = h.Control
	b[offLogInterval] = uint8(h.LogMessageInterval)
}

// DecodeTimestamps reads n consecutive timestamps right after the header.
// b must hold HeaderLength + n*TimestampLength bytes.
func DecodeTimestamps(b []byte, n int) []ptptime.Timestamp {
	res := make([]ptptime.Timestamp, n)
	for i := range res {
		p := b[HeaderLength+i*TimestampLength:]
		// 48 bit seconds
		sec := uint64(binary.BigEndian.Uint16(p[0:]))<<32 | uint64(binary.BigEndian.Uint32(p[2:]))
		res[i] = ptptime.Timestamp{
			Seconds:     int64(sec),
			Nanoseconds: int32(binary.BigEndian.Uint32(p[6:])),
		}
	}
	return res
}

// EncodeTimestamps writes timestamps right after the header
func EncodeTimestamps(b []byte, ts []ptptime.Timestamp) {
	for i, t := range ts {
		p := b[HeaderLength+i*TimestampLength:]
		sec := uint64(t.Seconds)
		binary.BigEndian.PutUint16(p[0:], uint16(sec>>32))
		binary.BigEndian.PutUint32(p[2:], uint32(sec))
		binary.BigEndian.PutUint32(p[6:], uint32(t.Nanoseconds))
	}
}

// DelayRespIdentification is requestingPortIdentity carried by Delay_Resp
type DelayRespIdentification struct {
	RequestingClockIdentity ClockIdentity
	RequestingPortID        uint16
}

// DecodeDelayRespIdentification reads requestingPortIdentity from Delay_Resp.
// b must be at least DelayRespLength bytes long.
func DecodeDelayRespIdentification(b []byte) DelayRespIdentification {
	return DelayRespIdentification{
		RequestingClockIdentity: ClockIdentity(binary.BigEndian.Uint64(b[offReqClockIdentity:])),
		RequestingPortID:        binary.BigEndian.Uint16(b[offReqPortID:]),
	}
}

// NewDelayReq builds Delay_Req in a freshly allocated buffer. Origin timestamp is left at zero.
func NewDelayReq(clockID ClockIdentity, portID, sequenceID uint16) []byte {
	h := Header{
		MessageType:        MessageDelayReq,
		Version:            Version,
		MessageLength:      DelayReqLength,
		ClockIdentity:      clockID,
		SourcePortID:       portID,
		SequenceID:         sequenceID,
		Control:            ControlDelayReq,
		LogMessageInterval: LogMessageIntervalUnused,
	}
	b := make([]byte, DelayReqLength)
	EncodeHeader(b, &h)
	EncodeTimestamps(b, []ptptime.Timestamp{{}})
	return b
}
