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

package cmd

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/ptpslave/console"
	"github.com/facebook/ptpslave/ptp/slave"
	"github.com/facebook/ptpslave/ptp/slave/stats"
)

func newTestServer(t *testing.T) (*httptest.Server, *[]string) {
	st := stats.NewJSONStats()
	st.UpdateCounterBy(stats.CounterSync, 2)
	st.SetStatusFunc(func() any {
		return &slave.Status{ClockIdentity: "001122.fffe.334455", State: slave.StateIdle.String()}
	})
	var got []string
	reg := console.NewRegistry()
	require.NoError(t, reg.Register(console.Command{
		Path: "ptp servo offset",
		Handler: func(_ context.Context, w io.Writer, args []string) error {
			got = args
			_, err := io.WriteString(w, "> PTP clock offset: 5 ns\n")
			return err
		},
	}))
	st.Handle("/command", reg.HTTPHandler())
	srv := httptest.NewServer(st)
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestCountersRun(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NoError(t, countersRun(srv.URL))
}

func TestStatusRun(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NoError(t, statusRun(srv.URL))
}

func TestExecRun(t *testing.T) {
	srv, got := newTestServer(t)
	require.NoError(t, execRun(srv.URL, "ptp servo offset 5"))
	require.Equal(t, []string{"5"}, *got)

	err := execRun(srv.URL, "ptp bogus")
	require.ErrorContains(t, err, "unknown command")
}

func TestNewDeviceFreeRunning(t *testing.T) {
	cfg := slave.DefaultConfig()
	cfg.Clock = slave.ClockFreeRunning
	dev, closeDev, err := newDevice(cfg)
	require.NoError(t, err)
	defer closeDev()
	require.NoError(t, dev.Init(50, 1))
}
