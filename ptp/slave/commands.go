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
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/exp/maps"

	"github.com/facebook/ptpslave/console"
)

func onOff(arg string) (bool, error) {
	switch arg {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("%q is neither on nor off: %w", arg, console.ErrBadArguments)
}

// RegisterCommands adds slave administration commands to r.
// counters, when not nil, is used by 'ptp status' to print stats.
func RegisterCommands(r *console.Registry, s *Slave, counters func() map[string]int64) error {
	cmds := []console.Command{
		{
			Path: "ptp reset",
			Help: "Reset PTP subsystem",
			Handler: func(ctx context.Context, w io.Writer, _ []string) error {
				if err := s.Reset(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(w, "> PTP subsystem has been reset")
				return err
			},
		},
		{
			Path: "ptp servo offset",
			Args: "[offset_ns]",
			Help: "Set or get clock offset in ns",
			Handler: func(_ context.Context, w io.Writer, args []string) error {
				if len(args) > 0 {
					ns, err := strconv.ParseInt(args[0], 10, 64)
					if err != nil {
						return fmt.Errorf("offset %q: %w", args[0], console.ErrBadArguments)
					}
					s.SetOffset(ns)
				}
				_, err := fmt.Fprintf(w, "> PTP clock offset: %d ns\n", s.Offset())
				return err
			},
		},
		{
			Path: "ptp servo params",
			Args: "[Kp Kd]",
			Help: "Set or get servo parameters",
			Handler: func(_ context.Context, w io.Writer, args []string) error {
				if len(args) >= 2 {
					kp, err := strconv.ParseFloat(args[0], 64)
					if err != nil {
						return fmt.Errorf("kp %q: %w", args[0], console.ErrBadArguments)
					}
					kd, err := strconv.ParseFloat(args[1], 64)
					if err != nil {
						return fmt.Errorf("kd %q: %w", args[1], console.ErrBadArguments)
					}
					if err := s.SetServoGains(kp, kd); err != nil {
						return err
					}
				}
				kp, kd := s.ServoGains()
				_, err := fmt.Fprintf(w, "> K_p = %.3f, K_d = %.3f\n", kp, kd)
				return err
			},
		},
		{
			Path:    "ptp log",
			Args:    "{def|corr} {on|off}",
			Help:    "Turn logging on or off",
			MinArgs: 2,
			Handler: func(_ context.Context, w io.Writer, args []string) error {
				on, err := onOff(args[1])
				if err != nil {
					return err
				}
				if err := s.SetLogging(args[0], on); err != nil {
					return fmt.Errorf("%w: %w", console.ErrBadArguments, err)
				}
				_, err = fmt.Fprintf(w, "> PTP log %s: %s\n", args[0], args[1])
				return err
			},
		},
		{
			Path: "ptp status",
			Help: "Print state of PTP subsystem",
			Handler: func(_ context.Context, w io.Writer, _ []string) error {
				var c map[string]int64
				if counters != nil {
					c = counters()
				}
				WriteStatus(w, s.Status(), c)
				return nil
			},
		},
	}
	for _, c := range cmds {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatus prints st and counters as a table
func WriteStatus(w io.Writer, st *Status, counters map[string]int64) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Append([]string{"clock identity", st.ClockIdentity})
	table.Append([]string{"state", st.State})
	table.Append([]string{"servo state", st.ServoState})
	table.Append([]string{"addend", fmt.Sprintf("0x%X", st.Addend)})
	table.Append([]string{"frequency", fmt.Sprintf("%.3f ppb", st.FrequencyPPB)})
	table.Append([]string{"offset", fmt.Sprintf("%d ns", st.OffsetNs)})
	table.Append([]string{"K_p", fmt.Sprintf("%.3f", st.Kp)})
	table.Append([]string{"K_d", fmt.Sprintf("%.3f", st.Kd)})
	table.Append([]string{"log def", strconv.FormatBool(st.LogCycle)})
	table.Append([]string{"log corr", strconv.FormatBool(st.LogCorrection)})
	keys := maps.Keys(counters)
	sort.Strings(keys)
	for _, k := range keys {
		table.Append([]string{k, strconv.FormatInt(counters[k], 10)})
	}
	table.Render()
}
