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
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// InclusionSchema tags every encoded Inclusion. Bump it on any
// incompatible change to the encoded form.
const InclusionSchema = "prefab.inclusion/v1"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Inclusion lists the modules that include a symbol.
type Inclusion struct {
	Schema    string           `json:"schema"`
	Ident     string           `json:"ident"`
	UsePrefab bool             `json:"use_prefab"`
	Total     int              `json:"total"`
	Entries   []InclusionEntry `json:"entries"`
}

type InclusionEntry struct {
	Module   string `json:"module"`
	Quantity int    `json:"quantity"`
	// Via is the sub-assembly path from Module down to the symbol, empty
	// for a direct line.
	Via []string `json:"via,omitempty"`
}

// Encode returns the JSON document for inc. The encoding carries no type
// annotations and no object references.
func (inc *Inclusion) Encode() (string, error) {
	return json.MarshalToString(inc)
}

// DecodeInclusion parses a document produced by Encode.
func DecodeInclusion(s string) (*Inclusion, error) {
	inc := &Inclusion{}
	if err := json.UnmarshalFromString(s, inc); err != nil {
		return nil, err
	}
	if inc.Schema != InclusionSchema {
		return nil, fmt.Errorf("unsupported inclusion schema %q", inc.Schema)
	}
	return inc, nil
}
