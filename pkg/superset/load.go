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
	"os"
	"time"

	"gopkg.in/yaml.v2"
	"k8s.io/klog/v2"
)

// File is the serialized form of a superset.
type File struct {
	Modules []*Module `yaml:"modules"`
}

type Module struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Prefab marks a pre-assembled module, bought or built as a unit.
	Prefab bool   `yaml:"prefab,omitempty"`
	Lines  []Line `yaml:"lines"`
}

type Line struct {
	Ident string `yaml:"ident"`
	Qty   int    `yaml:"qty"`
}

func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Modules))

	for i, m := range f.Modules {
		if m == nil || m.Name == "" {
			return fmt.Errorf("module #%d: name is required", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("module %q: defined twice", m.Name)
		}
		seen[m.Name] = true

		for j, line := range m.Lines {
			if line.Ident == "" {
				return fmt.Errorf("module %q line #%d: ident is required", m.Name, j)
			}
			if line.Qty <= 0 {
				return fmt.Errorf("module %q line %q: quantity must be positive, got %d", m.Name, line.Ident, line.Qty)
			}
		}
	}

	return nil
}

// Parse decodes and validates a superset document.
func Parse(data []byte) (*File, error) {
	f := &File{}
	if err := yaml.UnmarshalStrict(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse superset: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return f, nil
}

// Build creates a superset holding the modules of f.
func Build(f *File) (*Superset, error) {
	s := New()

	err := s.Update(func(tx *Tx) {
		for _, m := range f.Modules {
			tx.SetModule(m)
		}
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// LoadFile reads, validates and indexes the superset stored at path.
func LoadFile(path string) (*Superset, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read superset: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s, err := Build(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	st := s.Stats()
	klog.Infof("loaded superset from %s: %d modules, %d symbols, hash %s in %v",
		path, st.Modules, st.Symbols, st.Hash, time.Since(start).Round(time.Millisecond))

	return s, nil
}
