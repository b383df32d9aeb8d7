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

package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// JSONStats serves counters and status over http
type JSONStats struct {
	*Stats
	sys      SysStats
	exporter *PrometheusExporter
	mux      *http.ServeMux
	status   func() any
}

// NewJSONStats returns a new JSONStats
func NewJSONStats() *JSONStats {
	s := &JSONStats{
		Stats:    NewStats(),
		exporter: NewPrometheusExporter(),
		mux:      http.NewServeMux(),
		status:   func() any { return struct{}{} },
	}
	s.mux.HandleFunc("/", s.handleRootRequest)
	s.mux.HandleFunc("/counters", s.handleCountersRequest)
	s.mux.Handle("/metrics", s.exporter.Handler())
	return s
}

// SetStatusFunc sets the source of data served on /
func (s *JSONStats) SetStatusFunc(f func() any) {
	s.status = f
}

// Handle registers additional handler, must be called before Start
func (s *JSONStats) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// ServeHTTP makes JSONStats a http.Handler
func (s *JSONStats) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Collect runs one aggregation round: sys stats, window stats and prometheus gauges
func (s *JSONStats) Collect(interval time.Duration) {
	sys, err := s.sys.CollectRuntimeStats(interval)
	if err != nil {
		log.Warningf("failed to get system metrics %s", err)
	}
	for k, v := range sys {
		s.SetCounter(k, v)
	}
	s.Aggregate()
	s.exporter.Update(s.GetCounters())
}

// Start runs http server until ctx is done, aggregating stats every interval
func (s *JSONStats) Start(ctx context.Context, monitoringport int, interval time.Duration) error {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Collect(interval)
			}
		}
	}()

	addr := fmt.Sprintf(":%d", monitoringport)
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	log.Infof("Starting http json server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start listener: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

func (s *JSONStats) handleRootRequest(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, s.status())
}

func (s *JSONStats) handleCountersRequest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.GetCounters())
}

// FetchCounters returns counters from the running slave at url
func FetchCounters(url string) (map[string]int64, error) {
	var counters map[string]int64
	if err := fetch(url+"/counters", &counters); err != nil {
		return nil, err
	}
	return counters, nil
}

// FetchStatus decodes status of the running slave at url into v
func FetchStatus(url string, v any) error {
	return fetch(url+"/", v)
}

func fetch(url string, v any) error {
	c := http.Client{Timeout: 2 * time.Second}
	resp, err := c.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %s: %s", url, resp.Status, b)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
