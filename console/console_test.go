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

package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func recorder(got *[]string) Handler {
	return func(_ context.Context, w io.Writer, args []string) error {
		*got = append([]string{}, args...)
		_, err := io.WriteString(w, "ok\n")
		return err
	}
}

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"ptp", "servo", "offset", "-10"}, Tokenize("  ptp servo\toffset  -10 \n"))
	require.Empty(t, Tokenize("   "))
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	require.Error(t, r.Register(Command{Path: "", Handler: recorder(new([]string))}))
	require.Error(t, r.Register(Command{Path: "? x", Handler: recorder(new([]string))}))
	require.Error(t, r.Register(Command{Path: "ptp reset"}))
}

func TestExecuteLongestPath(t *testing.T) {
	r := NewRegistry()
	var servo, offset []string
	require.NoError(t, r.Register(Command{Path: "ptp servo", Handler: recorder(&servo)}))
	require.NoError(t, r.Register(Command{Path: "ptp servo offset", Args: "[offset_ns]", Handler: recorder(&offset)}))

	var out bytes.Buffer
	require.NoError(t, r.Execute(context.Background(), &out, "ptp servo offset 250"))
	require.Equal(t, []string{"250"}, offset)
	require.Nil(t, servo)
	require.Equal(t, "ok\n", out.String())

	require.NoError(t, r.Execute(context.Background(), &out, "ptp servo params"))
	require.Equal(t, []string{"params"}, servo)
}

func TestExecuteErrors(t *testing.T) {
	r := NewRegistry()
	var got []string
	require.NoError(t, r.Register(Command{Path: "ptp log", Args: "{def|corr} {on|off}", MinArgs: 2, Handler: recorder(&got)}))
	failing := errors.New("boom")
	require.NoError(t, r.Register(Command{Path: "ptp fail", Handler: func(context.Context, io.Writer, []string) error { return failing }}))

	var out bytes.Buffer
	err := r.Execute(context.Background(), &out, "ptp log corr")
	require.ErrorIs(t, err, ErrBadArguments)
	require.Nil(t, got)

	err = r.Execute(context.Background(), &out, "ntp status")
	require.ErrorIs(t, err, ErrUnknownCommand)

	err = r.Execute(context.Background(), &out, "ptp fail")
	require.ErrorIs(t, err, failing)

	require.NoError(t, r.Execute(context.Background(), &out, ""))
	require.Empty(t, out.String())
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	var first, second []string
	require.NoError(t, r.Register(Command{Path: "ptp reset", Help: "old", Handler: recorder(&first)}))
	require.NoError(t, r.Register(Command{Path: "ptp  reset", Help: "new", Handler: recorder(&second)}))
	require.Len(t, r.Commands(), 1)
	require.Equal(t, "new", r.Commands()[0].Help)

	require.NoError(t, r.Execute(context.Background(), io.Discard, "ptp reset"))
	require.Nil(t, first)
	require.NotNil(t, second)
}

func TestHelp(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Command{Path: "ptp servo params", Args: "[Kp Kd]", Help: "Get or set servo gains", Handler: recorder(new([]string))}))
	require.NoError(t, r.Register(Command{Path: "ptp reset", Help: "Reset state machine", Handler: recorder(new([]string))}))

	var out bytes.Buffer
	require.NoError(t, r.Execute(context.Background(), &out, "?"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "?"))
	require.Contains(t, lines[1], "ptp reset")
	require.Contains(t, lines[2], "ptp servo params [Kp Kd]")
	require.Contains(t, lines[2], "Get or set servo gains")
}

func TestServe(t *testing.T) {
	r := NewRegistry()
	var got []string
	require.NoError(t, r.Register(Command{Path: "ptp servo offset", Handler: recorder(&got)}))

	in := strings.NewReader("ptp servo offset 42\nbogus\n")
	var out bytes.Buffer
	require.NoError(t, r.Serve(context.Background(), in, &out))
	require.Equal(t, []string{"42"}, got)
	require.Contains(t, out.String(), "ok\n")
	require.Contains(t, out.String(), "unknown command, see help (?)")
}

func TestHTTPHandler(t *testing.T) {
	r := NewRegistry()
	var got []string
	require.NoError(t, r.Register(Command{Path: "ptp servo offset", Handler: recorder(&got)}))
	srv := httptest.NewServer(r.HTTPHandler())
	defer srv.Close()

	resp, err := http.Post(srv.URL, "text/plain", strings.NewReader("ptp servo offset -7"))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok\n", string(body))
	require.Equal(t, []string{"-7"}, got)

	resp, err = http.Post(srv.URL, "text/plain", strings.NewReader("nope"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServePrompt(t *testing.T) {
	r := NewRegistry()
	r.Prompt = "> "
	var got []string
	require.NoError(t, r.Register(Command{Path: "ptp reset", Handler: recorder(&got)}))

	var out bytes.Buffer
	require.NoError(t, r.Serve(context.Background(), strings.NewReader("ptp reset\n"), &out))
	require.Equal(t, "> ok\n> ", out.String())
}
