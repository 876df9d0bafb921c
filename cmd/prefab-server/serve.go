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

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/tendril-eda/prefab-server/pkg/metrics"
	"github.com/tendril-eda/prefab-server/pkg/prefab"
)

func serveCmd() *cobra.Command {
	cfg := prefab.NewConfig()
	metricsAddr := ""

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the prefab JSON-RPC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := setupGlobal()

			if metricsAddr != "" {
				if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
					return err
				}
				klog.Infof("exporting metrics to: %v", metricsAddr)
				metrics.StartMetricsServer(metricsAddr, prometheus.DefaultGatherer, ctx.Done())
			}

			return prefab.NewService(cfg).Run(ctx)
		},
	}

	flags := cmd.Flags()
	cfg.BindFlags(flags)
	flags.StringVar(&metricsAddr, "metrics-addr", "", "start the metrics server on the specified IP:PORT (empty disables it)")

	return cmd
}
