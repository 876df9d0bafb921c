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
	"strings"

	"github.com/google/btree"
)

type Set int

const (
	// Modules holds one entry per module, keyed by Module.
	Modules Set = iota
	// Lines holds the direct BOM lines, keyed by Module then Ident.
	Lines
	// Symbols holds one entry per known symbol ident.
	Symbols
	// Inclusions is the reverse index, keyed by Prefab mode, Ident then Module.
	Inclusions
)

var AllSets = []Set{Modules, Lines, Symbols, Inclusions}

func (s Set) String() string {
	switch s {
	case Modules:
		return "modules"
	case Lines:
		return "lines"
	case Symbols:
		return "symbols"
	case Inclusions:
		return "inclusions"
	}
	return "unknown"
}

type KV struct {
	Set    Set
	Prefab bool
	Ident  string
	Module string

	Quantity int
	Via      []string

	Info *Module
}

func (a *KV) Path() string {
	return strings.Join([]string{a.Set.String(), a.Module, a.Ident}, "|")
}

func (a *KV) Less(i btree.Item) bool {
	b := i.(*KV)

	if a.Set != b.Set {
		return a.Set < b.Set
	}
	if a.Prefab != b.Prefab {
		return !a.Prefab
	}

	if a.Set == Lines {
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Ident < b.Ident
	}

	if a.Ident != b.Ident {
		return a.Ident < b.Ident
	}
	return a.Module < b.Module
}
