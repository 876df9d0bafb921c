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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendril-eda/prefab-server/pkg/client"
)

// callCmd sends a single JSON-RPC call to a running server. Arguments that
// are valid JSON are sent as is, others as strings.
func callCmd() *cobra.Command {
	c := client.New("")

	cmd := &cobra.Command{
		Use:   "call METHOD [PARAM...]",
		Short: "call a prefab JSON-RPC method",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result json.RawMessage
			if err := c.Call(cmd.Context(), args[0], callParams(args[1:]), &result); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(result))
			return nil
		},
	}

	c.DefaultFlags(cmd.Flags())

	return cmd
}

func callParams(args []string) []interface{} {
	params := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if json.Valid([]byte(arg)) {
			params = append(params, json.RawMessage(arg))
		} else {
			params = append(params, arg)
		}
	}
	return params
}
