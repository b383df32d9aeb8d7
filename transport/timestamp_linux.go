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

package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/facebook/ptpslave/ptptime"
)

// from include/uapi/linux/net_tstamp.h
const (
	hwtstampTXOn             int32 = 0x00000001
	hwtstampFilterAll        int32 = 0x00000001
	hwtstampFilterPTPv2Event int32 = 0x0000000c
)

const (
	// controlSizeBytes fits a few timestamp control messages
	controlSizeBytes = 128
	// payloadSizeBytes is more than any message we handle
	payloadSizeBytes = 128
	// txTimestampAttempts bounds error queue draining
	txTimestampAttempts = 100
)

var cmsgHeaderSize = binary.Size(unix.Cmsghdr{})

// errNoRXTimestamp means packet was read but carried no usable timestamp
var errNoRXTimestamp = errors.New("no RX timestamp")

type ifreq struct {
	name [unix.IFNAMSIZ]byte
	data uintptr
}

type hwtstampConfig struct {
	flags    int32
	txType   int32
	rxFilter int32
}

// connFd returns file descriptor of a connection
func connFd(conn *net.UDPConn) (int, error) {
	sc, err := conn.SyscallConn()
	if err != nil {
		return -1, err
	}
	var intfd int
	if err := sc.Control(func(fd uintptr) { intfd = int(fd) }); err != nil {
		return -1, err
	}
	return intfd, nil
}

// ioctlHWTimestamp asks the NIC to timestamp packets matching filter
func ioctlHWTimestamp(fd int, iface string, filter int32) error {
	hw := &hwtstampConfig{txType: hwtstampTXOn, rxFilter: filter}
	i := &ifreq{data: uintptr(unsafe.Pointer(hw))}
	copy(i.name[:unix.IFNAMSIZ-1], iface)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.SIOCSHWTSTAMP, uintptr(unsafe.Pointer(i))); errno != 0 {
		return fmt.Errorf("failed to run ioctl SIOCSHWTSTAMP on %s: %s (%d)", iface, unix.ErrnoName(errno), errno)
	}
	return nil
}

// enableTimestamps turns on TX and RX timestamps of the requested kind
func enableTimestamps(fd int, mode, iface string) error {
	var flags int
	switch mode {
	case HWTIMESTAMP:
		if err := ioctlHWTimestamp(fd, iface, hwtstampFilterAll); err != nil {
			// some NICs only timestamp PTP event messages
			if err := ioctlHWTimestamp(fd, iface, hwtstampFilterPTPv2Event); err != nil {
				return err
			}
		}
		flags = unix.SOF_TIMESTAMPING_TX_HARDWARE |
			unix.SOF_TIMESTAMPING_RX_HARDWARE |
			unix.SOF_TIMESTAMPING_RAW_HARDWARE
	case SWTIMESTAMP:
		flags = unix.SOF_TIMESTAMPING_TX_SOFTWARE |
			unix.SOF_TIMESTAMPING_RX_SOFTWARE |
			unix.SOF_TIMESTAMPING_SOFTWARE
	default:
		return fmt.Errorf("unknown timestamping %q", mode)
	}
	// only the timestamp comes back on the error queue, not the packet
	flags |= unix.SOF_TIMESTAMPING_OPT_TSONLY
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMPING_NEW, flags); err != nil {
		// kernels before 5.1 only know the old option
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMPING, flags); err != nil {
			return fmt.Errorf("setting SO_TIMESTAMPING: %w", err)
		}
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SELECT_ERR_QUEUE, 1)
}

// readPacketWithRXTimestamp reads packet into buf and returns its length and RX timestamp
func readPacketWithRXTimestamp(fd int, buf, oob []byte) (int, ptptime.Timestamp, error) {
	n, oobn, _, _, err := unix.Recvmsg(fd, buf, oob, 0)
	if err != nil {
		return 0, ptptime.Timestamp{}, err
	}
	ts, err := cmsgTimestamp(oob[:oobn])
	if err != nil {
		return n, ts, fmt.Errorf("%w: %w", errNoRXTimestamp, err)
	}
	return n, ts, nil
}

// recvErrQueue reads only control data from the error queue
func recvErrQueue(fd int, oob []byte) (int, error) {
	var msg unix.Msghdr
	msg.Control = &oob[0]
	msg.SetControllen(len(oob))
	_, _, errno := unix.Syscall(unix.SYS_RECVMSG, uintptr(fd), uintptr(unsafe.Pointer(&msg)), uintptr(unix.MSG_ERRQUEUE|unix.MSG_DONTWAIT))
	if errno != 0 {
		return 0, errno
	}
	return int(msg.Controllen), nil
}

// readTXTimestamp returns TX timestamp of the last sent packet.
// Error queue is drained completely so a late timestamp of an older packet is never
// taken for the current one.
func readTXTimestamp(fd int, oob, toob []byte) (ptptime.Timestamp, error) {
	found := false
	var oobn int
	for i := 0; i < txTimestampAttempts; i++ {
		if !found {
			// 1ms, error is irrelevant, recvErrQueue will tell
			fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLPRI}}
			_, _ = unix.Poll(fds, 1)
		}
		n, err := recvErrQueue(fd, toob)
		if err != nil {
			if found {
				break
			}
			continue
		}
		found = true
		oobn = n
		copy(oob, toob[:n])
	}
	if !found {
		return ptptime.Timestamp{}, fmt.Errorf("no TX timestamp found after %d tries", txTimestampAttempts)
	}
	return cmsgTimestamp(oob[:oobn])
}

// cmsgTimestamp finds SO_TIMESTAMPING control message and extracts timestamp from it
func cmsgTimestamp(b []byte) (ptptime.Timestamp, error) {
	mlen := 0
	for i := 0; i+cmsgHeaderSize <= len(b); i += mlen {
		h := (*unix.Cmsghdr)(unsafe.Pointer(&b[i]))
		mlen = cmsgAlign(int(h.Len))
		if mlen == 0 {
			break
		}
		if h.Level == unix.SOL_SOCKET && (int(h.Type) == unix.SO_TIMESTAMPING_NEW || int(h.Type) == unix.SO_TIMESTAMPING) {
			end := i + int(h.Len)
			if end > len(b) {
				end = len(b)
			}
			return scmTimestamp(b[i+cmsgHeaderSize : end])
		}
	}
	return ptptime.Timestamp{}, fmt.Errorf("failed to find timestamp in socket control message")
}

func cmsgAlign(n int) int {
	const salign = int(unsafe.Sizeof(uintptr(0)))
	return (n + salign - 1) & ^(salign - 1)
}

// scmTimestamp parses struct scm_timestamping64: three __kernel_timespec,
// software timestamp in the first one, hardware in the last.
func scmTimestamp(data []byte) (ptptime.Timestamp, error) {
	const tsSize = 16
	if len(data) < 3*tsSize {
		return ptptime.Timestamp{}, fmt.Errorf("timestamp control message too short: %d", len(data))
	}
	if ts := kernelTimespec(data[2*tsSize : 3*tsSize]); !ts.IsZero() {
		return ts, nil
	}
	if ts := kernelTimespec(data[0:tsSize]); !ts.IsZero() {
		return ts, nil
	}
	return ptptime.Timestamp{}, fmt.Errorf("got zero timestamp")
}

func kernelTimespec(b []byte) ptptime.Timestamp {
	return ptptime.Timestamp{
		Seconds:     int64(binary.LittleEndian.Uint64(b[0:8])),
		Nanoseconds: int32(binary.LittleEndian.Uint64(b[8:16])),
	}
}
