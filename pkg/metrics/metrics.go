/*
Copyright 2026 The Prefab Server Authors.

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

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	utilwait "k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

const (
	readHeaderTimeout = time.Second * 5

	// calls to unknown methods share one label value
	// (JSON-RPC "method not found").
	codeMethodNotFound = -32601
	otherMethod        = "other"
)

var RPCRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "prefab_rpc_requests_total",
	Help: "The total number of JSON-RPC calls, by method and result code (0 on success)",
}, []string{"method", "code"})

var RPCDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "prefab_rpc_duration_seconds",
	Help:    "JSON-RPC call latency",
	Buckets: prometheus.DefBuckets,
}, []string{"method"})

var Warmups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "prefab_warmups_total",
	Help: "The total number of dataset cold start attempts, by result",
}, []string{"result"})

var WarmupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "prefab_warmup_duration_seconds",
	Help:    "Time spent building the dataset index",
	Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
})

var DatasetReady = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "prefab_dataset_ready",
	Help: "1 once the dataset index is built",
})

var all = []prometheus.Collector{RPCRequests, RPCDuration, Warmups, WarmupDuration, DatasetReady}

// Register adds the prefab collectors to r.
func Register(r prometheus.Registerer) error {
	for _, c := range all {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RPCObserver records JSON-RPC calls.
type RPCObserver struct{}

func (RPCObserver) ObserveCall(method string, code int, elapsed time.Duration) {
	if code == codeMethodNotFound {
		method = otherMethod
	}
	RPCRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	RPCDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveWarmup records a cold start attempt.
func ObserveWarmup(err error, elapsed time.Duration) {
	if err != nil {
		Warmups.WithLabelValues("failure").Inc()
		DatasetReady.Set(0)
		return
	}

	Warmups.WithLabelValues("success").Inc()
	WarmupDuration.Observe(elapsed.Seconds())
	DatasetReady.Set(1)
}

// StartMetricsServer runs the prometheus listener so that prefab metrics can be collected
func StartMetricsServer(bindAddress string, gatherer prometheus.Gatherer, stopChan <-chan struct{}) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	klog.Infof("Starting metrics server at %s", bindAddress)

	go func() {
		server := &http.Server{
			Addr:              bindAddress,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		}

		go utilwait.Until(func() {
			err := server.ListenAndServe()

			if err != nil && err != http.ErrServerClosed {
				utilruntime.HandleError(fmt.Errorf("starting metrics server failed: %v", err))
			}
		}, 5*time.Second, stopChan)

		<-stopChan
		klog.Infof("Stopping metrics server %s", server.Addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			klog.Errorf("Error stopping metrics server: %v", err)
		}
	}()
}
