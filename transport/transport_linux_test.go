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
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	ptp "github.com/facebook/ptpslave/ptp/protocol"
	"github.com/facebook/ptpslave/ptptime"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig("eth0")
	require.NoError(t, cfg.Validate())

	cfg.Timestamping = "magic"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig("eth0")
	cfg.Groups = []net.IP{net.ParseIP("10.0.0.1")}
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig("eth0")
	cfg.Destination = net.ParseIP("::1")
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig("eth0")
	cfg.DSCP = 64
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig("")
	require.Error(t, cfg.Validate())

	cfg = Config{Timestamping: SWTIMESTAMP, Destination: net.ParseIP("127.0.0.1")}
	require.NoError(t, cfg.Validate())
}

func buildTimestampCmsg(typ int, sw, hw ptptime.Timestamp) []byte {
	b := make([]byte, cmsgAlign(cmsgHeaderSize+48))
	h := (*unix.Cmsghdr)(unsafe.Pointer(&b[0]))
	h.Level = unix.SOL_SOCKET
	h.Type = int32(typ)
	h.SetLen(cmsgHeaderSize + 48)
	data := b[cmsgHeaderSize:]
	binary.LittleEndian.PutUint64(data[0:], uint64(sw.Seconds))
	binary.LittleEndian.PutUint64(data[8:], uint64(sw.Nanoseconds))
	binary.LittleEndian.PutUint64(data[32:], uint64(hw.Seconds))
	binary.LittleEndian.PutUint64(data[40:], uint64(hw.Nanoseconds))
	return b
}

func TestCmsgTimestamp(t *testing.T) {
	sw := ptptime.Timestamp{Seconds: 1628091622, Nanoseconds: 667374575}
	hw := ptptime.Timestamp{Seconds: 1628091623, Nanoseconds: 1}

	ts, err := cmsgTimestamp(buildTimestampCmsg(unix.SO_TIMESTAMPING_NEW, sw, hw))
	require.NoError(t, err)
	require.Equal(t, hw, ts)

	// no hardware timestamp, software one is used
	ts, err = cmsgTimestamp(buildTimestampCmsg(unix.SO_TIMESTAMPING, sw, ptptime.Timestamp{}))
	require.NoError(t, err)
	require.Equal(t, sw, ts)

	_, err = cmsgTimestamp(buildTimestampCmsg(unix.SO_TIMESTAMPING_NEW, ptptime.Timestamp{}, ptptime.Timestamp{}))
	require.Error(t, err)

	// timestamp is found after an unrelated message
	other := buildTimestampCmsg(unix.SO_RCVBUF, sw, sw)
	ts, err = cmsgTimestamp(append(other, buildTimestampCmsg(unix.SO_TIMESTAMPING_NEW, sw, hw)...))
	require.NoError(t, err)
	require.Equal(t, hw, ts)

	_, err = cmsgTimestamp(nil)
	require.Error(t, err)
}

func TestTransportLoopback(t *testing.T) {
	tr, err := New(Config{
		Timestamping: SWTIMESTAMP,
		Destination:  net.ParseIP("127.0.0.1"),
	})
	require.NoError(t, err)
	defer tr.Close()

	type received struct {
		data []byte
		rx   ptptime.Timestamp
	}
	got := make(chan received, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- tr.Run(ctx, func(b []byte, rx ptptime.Timestamp) {
			got <- received{data: b, rx: rx}
		})
	}()

	req := ptp.NewDelayReq(0x001122fffe334455, 1, 1)
	tx, err := tr.SendDelayReq(req)
	require.NoError(t, err)
	require.Equal(t, time.Now().Unix()/10, tx.Seconds/10, "TX timestamp should be within 10s")

	select {
	case r := <-got:
		require.Equal(t, req, r.data)
		require.Equal(t, time.Now().Unix()/10, r.rx.Seconds/10, "RX timestamp should be within 10s")
	case <-time.After(5 * time.Second):
		t.Fatal("event packet not received")
	}

	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: tr.GeneralAddr().Port})
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte{8, 2, 0, 44})
	require.NoError(t, err)
	select {
	case r := <-got:
		require.Equal(t, []byte{8, 2, 0, 44}, r.data)
		require.True(t, r.rx.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("general packet not received")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("transport did not stop")
	}
}

func TestReadPacketWithoutRXTimestamp(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	_, err = unix.Write(fds[0], []byte{1, 2, 3})
	require.NoError(t, err)

	buf := make([]byte, payloadSizeBytes)
	oob := make([]byte, controlSizeBytes)
	n, _, err := readPacketWithRXTimestamp(fds[1], buf, oob)
	require.ErrorIs(t, err, errNoRXTimestamp)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{1, 2, 3}, buf[:n])
}
