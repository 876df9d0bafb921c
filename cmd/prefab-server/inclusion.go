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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendril-eda/prefab-server/pkg/superset"
)

// inclusionCmd answers an inclusion query from a dataset file, without a
// server.
func inclusionCmd() *cobra.Command {
	var (
		dataset   string
		usePrefab bool
	)

	cmd := &cobra.Command{
		Use:   "inclusion SYMBOL...",
		Short: "print the inclusion document of symbols from a dataset file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := superset.LoadFile(dataset)
			if err != nil {
				return err
			}

			for _, ident := range args {
				inc, err := s.GetSymbolInclusion(ident, usePrefab)
				if err != nil {
					return err
				}

				doc, err := inc.Encode()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), doc)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&dataset, "dataset", "d", "superset.yaml", "superset file to query")
	flags.BoolVar(&usePrefab, "use-prefab", false, "do not expand prefab sub-assemblies")

	return cmd
}
