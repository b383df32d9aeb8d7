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
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/facebook/ptpslave/ptp/slave"
	"github.com/facebook/ptpslave/ptp/slave/stats"
)

var addressFlag string

func init() {
	defaults := slave.DefaultConfig()
	defaultAddress := fmt.Sprintf("http://localhost:%d", defaults.MonitoringPort)
	for _, c := range []*cobra.Command{countersCmd, statusCmd, execCmd} {
		RootCmd.AddCommand(c)
		c.Flags().StringVarP(&addressFlag, "address", "a", defaultAddress, "monitoring address of running ptpslave")
	}
}

func countersRun(address string) error {
	counters, err := stats.FetchCounters(address)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Counter", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	keys := maps.Keys(counters)
	sort.Strings(keys)
	for _, k := range keys {
		table.Append([]string{k, strconv.FormatInt(counters[k], 10)})
	}
	table.Render()
	return nil
}

var countersCmd = &cobra.Command{
	Use:   "counters",
	Short: "Print counters of running ptpslave",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := countersRun(addressFlag); err != nil {
			log.Fatal(err)
		}
	},
}

func statusRun(address string) error {
	st := &slave.Status{}
	if err := stats.FetchStatus(address, st); err != nil {
		return err
	}
	slave.WriteStatus(os.Stdout, st, nil)
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print status of running ptpslave",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := statusRun(addressFlag); err != nil {
			log.Fatal(err)
		}
	},
}

func execRun(address string, line string) error {
	c := http.Client{Timeout: 5 * time.Second}
	resp, err := c.Post(address+"/command", "text/plain", strings.NewReader(line))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, see help (?)", strings.TrimSpace(string(b)))
	}
	fmt.Print(string(b))
	return nil
}

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command>",
	Short: "Run admin command, e.g. 'ptp servo offset 100' or '?', on running ptpslave",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		if err := execRun(addressFlag, strings.Join(args, " ")); err != nil {
			log.Fatal(err)
		}
	},
}
