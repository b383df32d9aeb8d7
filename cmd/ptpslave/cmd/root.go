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
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/facebook/ptpslave/clock"
	"github.com/facebook/ptpslave/console"
	ptp "github.com/facebook/ptpslave/ptp/protocol"
	"github.com/facebook/ptpslave/ptp/slave"
	"github.com/facebook/ptpslave/ptp/slave/stats"
	"github.com/facebook/ptpslave/transport"

	// #nosec G108
	_ "net/http/pprof"
)

// RootCmd runs the slave. Subcommands talk to a running one.
var RootCmd = &cobra.Command{
	Use:   "ptpslave",
	Short: "PTPv2 slave disciplining local clock to the multicast master",
	Run: func(c *cobra.Command, _ []string) {
		ConfigureVerbosity()
		setFlags := make(map[string]bool)
		c.Flags().Visit(func(f *pflag.Flag) {
			setFlags[f.Name] = true
		})
		cfg, err := slave.PrepareConfig(configFlag, ifaceFlag, monitoringPortFlag, consoleFlag, setFlags)
		if err != nil {
			log.Fatal(err)
		}
		if pprofFlag != "" {
			go func() {
				if err := http.ListenAndServe(pprofFlag, nil); err != nil {
					log.Errorf("Failed to start pprof. Err: %v", err)
				}
			}()
		}
		if err := doWork(cfg); err != nil {
			log.Fatal(err)
		}
	},
}

// flags
var (
	rootVerboseFlag    bool
	configFlag         string
	ifaceFlag          string
	monitoringPortFlag int
	consoleFlag        bool
	pprofFlag          string
)

func init() {
	defaults := slave.DefaultConfig()
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
	RootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "path to the config")
	RootCmd.Flags().StringVarP(&ifaceFlag, "iface", "i", defaults.Iface, "network interface to use")
	RootCmd.Flags().IntVar(&monitoringPortFlag, "monitoringport", defaults.MonitoringPort, "port to start monitoring http server on")
	RootCmd.Flags().BoolVar(&consoleFlag, "console", defaults.Console, "read admin commands from stdin")
	RootCmd.Flags().StringVar(&pprofFlag, "pprof", "", "Address to have the profiler listen on, disabled if empty.")
}

// ConfigureVerbosity configures log verbosity based on parsed flags. Needs to be called by any subcommand.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

// Execute is the main entry point for CLI interface
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func clockIdentity(iface string) (ptp.ClockIdentity, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return 0, fmt.Errorf("looking up %s: %w", iface, err)
	}
	return ptp.NewClockIdentity(ifi.HardwareAddr)
}

func newDevice(cfg *slave.Config) (clock.Device, func(), error) {
	switch cfg.Clock {
	case slave.ClockPHC:
		c, err := clock.NewPHC(cfg.Iface)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	case slave.ClockSystem:
		return clock.NewSystem(), func() {}, nil
	}
	return clock.NewFreeRunning(), func() {}, nil
}

func doWork(cfg *slave.Config) error {
	clockID, err := clockIdentity(cfg.Iface)
	if err != nil {
		return err
	}
	log.Infof("Clock identity: %s", clockID)

	dev, closeDev, err := newDevice(cfg)
	if err != nil {
		return fmt.Errorf("opening %s clock: %w", cfg.Clock, err)
	}
	defer closeDev()

	tr, err := transport.New(cfg.TransportConfig())
	if err != nil {
		return err
	}
	defer tr.Close()

	st := stats.NewJSONStats()
	s := slave.New(cfg, clockID, dev, tr, st, clockwork.NewRealClock())
	if err := s.Init(); err != nil {
		return err
	}

	reg := console.NewRegistry()
	if err := slave.RegisterCommands(reg, s, st.GetCounters); err != nil {
		return err
	}
	st.SetStatusFunc(func() any { return s.Status() })
	st.Handle("/command", reg.HTTPHandler())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return st.Start(ctx, cfg.MonitoringPort, cfg.MetricsAggregationWindow)
	})
	eg.Go(func() error {
		return s.Run(ctx)
	})
	eg.Go(func() error {
		return tr.Run(ctx, s.Enqueue)
	})
	if cfg.Console {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			reg.Prompt = "> "
		}
		eg.Go(func() error {
			return reg.Serve(ctx, os.Stdin, os.Stdout)
		})
	}
	return eg.Wait()
}
