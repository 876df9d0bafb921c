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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallParams(t *testing.T) {
	params := callParams([]string{"IC1", "42", `{"a":1}`, "not json", "true", "null", "-1.5"})
	require.Len(t, params, 7)

	assert.Equal(t, "IC1", params[0])
	assert.Equal(t, json.RawMessage("42"), params[1])
	assert.Equal(t, json.RawMessage(`{"a":1}`), params[2])
	assert.Equal(t, "not json", params[3])
	assert.Equal(t, json.RawMessage("true"), params[4])
	assert.Equal(t, json.RawMessage("null"), params[5])
	assert.Equal(t, json.RawMessage("-1.5"), params[6])
}

func TestInclusionCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "superset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
modules:
  - name: PSU
    prefab: true
    lines:
      - {ident: IC1, qty: 2}
  - name: MAIN
    lines:
      - {ident: PSU, qty: 3}
`), 0o644))

	for _, tc := range []struct {
		args  []string
		total string
	}{
		{[]string{"IC1"}, `"total":8`},
		{[]string{"--use-prefab", "IC1"}, `"total":2`},
	} {
		out := &bytes.Buffer{}
		cmd := inclusionCmd()
		cmd.SetOut(out)
		cmd.SetArgs(append([]string{"-d", path}, tc.args...))

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), tc.total, tc.args)
		assert.True(t, strings.HasSuffix(out.String(), "}\n"))
	}
}

func TestInclusionCmdUnknownSymbol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "superset.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modules:\n  - name: A\n    lines:\n      - {ident: R1, qty: 1}\n"), 0o644))

	cmd := inclusionCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-d", path, "NOPE"})

	assert.Error(t, cmd.Execute())
}

func TestVersion(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := versionCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Prefab Server")
	assert.Contains(t, out.String(), "Commit:        UNKNOWN")
}
