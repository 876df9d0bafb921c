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
	"flag"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// main runs the prefab-server command requested by the user.
func main() {
	klog.InitFlags(flag.CommandLine)

	cmd := cobra.Command{
		Use:   "prefab-server",
		Short: "serve prefab symbol inclusion queries over JSON-RPC",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			klog.V(2).Infof("persistent pre run: %s", cmd.Name())
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(
		serveCmd(),
		inclusionCmd(),
		callCmd(),
		versionCmd(),
	)

	if err := cmd.Execute(); err != nil {
		klog.Fatal(err)
	}
}
