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

package superset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testdataPath = "testdata/superset.yaml"

func Example() {
	s, err := LoadFile(testdataPath)
	if err != nil {
		panic(err)
	}

	for _, usePrefab := range []bool{false, true} {
		inc, err := s.GetSymbolInclusion("IC1", usePrefab)
		if err != nil {
			panic(err)
		}

		fmt.Println("use prefab:", usePrefab, "total:", inc.Total)
		for _, e := range inc.Entries {
			fmt.Println("-", e.Module, e.Quantity, e.Via)
		}
	}

	// Output:
	// use prefab: false total: 12
	// - MAIN 5 []
	// - PANEL 5 [MAIN]
	// - PSU 2 []
	// use prefab: true total: 4
	// - MAIN 1 []
	// - PANEL 1 [MAIN]
	// - PSU 2 []
}

func ExampleInclusion_Encode() {
	s, err := LoadFile(testdataPath)
	if err != nil {
		panic(err)
	}

	inc, _ := s.GetSymbolInclusion("C1", false)
	doc, _ := inc.Encode()
	fmt.Println(doc)

	// Output:
	// {"schema":"prefab.inclusion/v1","ident":"C1","use_prefab":false,"total":15,"entries":[{"module":"MAIN","quantity":6,"via":["PSU"]},{"module":"PANEL","quantity":6,"via":["MAIN","PSU"]},{"module":"PSU","quantity":3}]}
}

func TestSymbolInclusion(t *testing.T) {
	s, err := LoadFile(testdataPath)
	require.NoError(t, err)

	for _, tc := range []struct {
		ident     string
		usePrefab bool
		total     int
		modules   []string
	}{
		{"R1", false, 10, []string{"MAIN", "PANEL"}},
		{"R1", true, 10, []string{"MAIN", "PANEL"}},
		{"C1", true, 3, []string{"PSU"}},
		{"PSU", false, 4, []string{"MAIN", "PANEL"}},
		{"PSU", true, 4, []string{"MAIN", "PANEL"}},
		{"MAIN", false, 1, []string{"PANEL"}},
	} {
		t.Run(fmt.Sprint(tc.ident, "/prefab=", tc.usePrefab), func(t *testing.T) {
			inc, err := s.GetSymbolInclusion(tc.ident, tc.usePrefab)
			require.NoError(t, err)

			assert.Equal(t, InclusionSchema, inc.Schema)
			assert.Equal(t, tc.ident, inc.Ident)
			assert.Equal(t, tc.usePrefab, inc.UsePrefab)
			assert.Equal(t, tc.total, inc.Total)

			modules := make([]string, 0, len(inc.Entries))
			for _, e := range inc.Entries {
				modules = append(modules, e.Module)
			}
			assert.Equal(t, tc.modules, modules)
		})
	}
}

func TestUnknownSymbol(t *testing.T) {
	s, err := LoadFile(testdataPath)
	require.NoError(t, err)

	_, err = s.GetSymbolInclusion("NOPE", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSymbol))
}

func TestSymbolsAndStats(t *testing.T) {
	s, err := LoadFile(testdataPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"C1", "IC1", "MAIN", "PSU", "R1"}, s.Symbols())

	st := s.Stats()
	assert.Equal(t, 3, st.Modules)
	assert.Equal(t, 5, st.Symbols)
	assert.NotEmpty(t, st.Hash)

	psu, ok := s.Module("PSU")
	require.True(t, ok)
	assert.True(t, psu.Prefab)

	_, ok = s.Module("NOPE")
	assert.False(t, ok)
}

func TestDuplicateLinesAreSummed(t *testing.T) {
	s, err := Build(&File{Modules: []*Module{
		{Name: "A", Lines: []Line{{Ident: "X", Qty: 1}, {Ident: "X", Qty: 2}}},
	}})
	require.NoError(t, err)

	inc, err := s.GetSymbolInclusion("X", false)
	require.NoError(t, err)
	assert.Equal(t, 3, inc.Total)
}

func TestCycleRejected(t *testing.T) {
	_, err := Build(&File{Modules: []*Module{
		{Name: "A", Lines: []Line{{Ident: "B", Qty: 1}}},
		{Name: "B", Lines: []Line{{Ident: "C", Qty: 1}}},
		{Name: "C", Lines: []Line{{Ident: "A", Qty: 1}}},
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.Contains(t, err.Error(), "A -> B -> C -> A")
}

func TestFailedUpdateKeepsPreviousState(t *testing.T) {
	s, err := LoadFile(testdataPath)
	require.NoError(t, err)
	before := s.Stats()

	err = s.Update(func(tx *Tx) {
		tx.SetModule(&Module{Name: "PSU", Lines: []Line{{Ident: "PANEL", Qty: 1}}})
	})
	require.True(t, errors.Is(err, ErrCycle))

	assert.Equal(t, before, s.Stats())
}

func TestUpdateReplacesModule(t *testing.T) {
	s, err := LoadFile(testdataPath)
	require.NoError(t, err)

	err = s.Update(func(tx *Tx) {
		tx.SetModule(&Module{Name: "PSU", Prefab: true, Lines: []Line{{Ident: "IC9", Qty: 1}}})
	})
	require.NoError(t, err)

	_, err = s.GetSymbolInclusion("C1", false)
	assert.True(t, errors.Is(err, ErrUnknownSymbol))

	inc, err := s.GetSymbolInclusion("IC9", false)
	require.NoError(t, err)
	assert.Equal(t, 1+2+2, inc.Total)

	err = s.Update(func(tx *Tx) { tx.Reset() })
	require.NoError(t, err)
	assert.Empty(t, s.Symbols())
}

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		err  string
	}{
		{"unknown field", "modules:\n- name: A\n  colour: red\n", "failed to parse"},
		{"missing name", "modules:\n- lines: []\n", "name is required"},
		{"duplicate", "modules:\n- name: A\n- name: A\n", "defined twice"},
		{"missing ident", "modules:\n- name: A\n  lines:\n  - {qty: 1}\n", "ident is required"},
		{"zero qty", "modules:\n- name: A\n  lines:\n  - {ident: X}\n", "quantity must be positive"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	path := filepath.Join(t.TempDir(), "cycle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modules:\n- name: A\n  lines:\n  - {ident: A, qty: 1}\n"), 0o644))

	_, err = LoadFile(path)
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestDecodeInclusion(t *testing.T) {
	s, err := LoadFile(testdataPath)
	require.NoError(t, err)

	inc, err := s.GetSymbolInclusion("IC1", false)
	require.NoError(t, err)

	doc, err := inc.Encode()
	require.NoError(t, err)

	decoded, err := DecodeInclusion(doc)
	require.NoError(t, err)
	assert.Equal(t, inc, decoded)

	_, err = DecodeInclusion(`{"schema":"prefab.inclusion/v0"}`)
	assert.Error(t, err)
}

func wideFile() *File {
	f := &File{}
	for m := 0; m < 8; m++ {
		mod := &Module{Name: fmt.Sprintf("MOD%d", m), Prefab: m%3 == 0}
		for l := 0; l < 16; l++ {
			mod.Lines = append(mod.Lines, Line{Ident: fmt.Sprintf("P%d_%02d", m, l), Qty: l + 1})
		}
		mod.Lines = append(mod.Lines, Line{Ident: "SHARED", Qty: 1})
		if m > 0 {
			mod.Lines = append(mod.Lines, Line{Ident: fmt.Sprintf("MOD%d", m-1), Qty: 2})
		}
		f.Modules = append(f.Modules, mod)
	}
	return f
}

func TestEveryLineIdentIsIndexed(t *testing.T) {
	f := wideFile()
	s, err := Build(f)
	require.NoError(t, err)

	symbols := map[string]bool{}
	for _, ident := range s.Symbols() {
		symbols[ident] = true
	}

	for _, m := range f.Modules {
		for _, line := range m.Lines {
			assert.True(t, symbols[line.Ident], line.Ident)

			for _, usePrefab := range []bool{false, true} {
				inc, err := s.GetSymbolInclusion(line.Ident, usePrefab)
				require.NoError(t, err, line.Ident)

				found := false
				for _, e := range inc.Entries {
					found = found || e.Module == m.Name
				}
				assert.True(t, found, "%s not included by %s", line.Ident, m.Name)
			}
		}
	}

	parts := 0
	for ident := range symbols {
		if _, isModule := s.Module(ident); !isModule {
			parts++
		}
	}
	assert.Equal(t, 8*16+1, parts)
	assert.Equal(t, 8*16+1+7, s.Stats().Symbols)

	inc, err := s.GetSymbolInclusion("SHARED", false)
	require.NoError(t, err)
	assert.Len(t, inc.Entries, 8)
}
