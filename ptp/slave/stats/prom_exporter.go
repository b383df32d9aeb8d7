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
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// PrometheusExporter exposes counters as prometheus gauges
type PrometheusExporter struct {
	registry *prometheus.Registry
}

// NewPrometheusExporter creates a new instance of PrometheusExporter
func NewPrometheusExporter() *PrometheusExporter {
	return &PrometheusExporter{registry: prometheus.NewRegistry()}
}

// Update sets gauges to the counter values, registering new ones on the fly
func (e *PrometheusExporter) Update(counters map[string]int64) {
	for mkey, mval := range counters {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: flattenKey(mkey),
			Help: mkey,
		})
		if err := e.registry.Register(g); err != nil {
			are := prometheus.AlreadyRegisteredError{}
			if errors.As(err, &are) {
				g = are.ExistingCollector.(prometheus.Gauge)
			} else {
				log.Errorf("failed to register metric %s: %v", mkey, err)
				continue
			}
		}
		g.Set(float64(mval))
	}
}

// Handler serves registered metrics
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func flattenKey(key string) string {
	return strings.NewReplacer(" ", "_", ".", "_", "-", "_", "=", "_", "/", "_").Replace(key)
}
