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
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/google/btree"
	"k8s.io/klog/v2"
)

var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrCycle         = errors.New("sub-assembly cycle")
)

// Superset is the in-memory BOM superset: every known module, its direct
// lines, and a precomputed reverse index answering "which modules include
// this symbol" in both prefab modes.
type Superset struct {
	sync.RWMutex
	tree *btree.BTree
	hash uint64
}

type Stats struct {
	Modules    int    `json:"modules"`
	Symbols    int    `json:"symbols"`
	Inclusions int    `json:"inclusions"`
	Hash       string `json:"hash"`
}

func New() *Superset {
	return &Superset{
		tree: btree.New(2),
	}
}

// Update applies the changes made by update and rebuilds the inclusion
// index. If the resulting module graph is invalid, the superset is left
// untouched and the error is returned.
func (s *Superset) Update(update func(tx *Tx)) error {
	s.Lock()
	defer s.Unlock()

	tx := &Tx{tree: s.tree.Clone()}
	update(tx)

	if tx.changes == 0 {
		return nil // nothing changed
	}

	if err := reindex(tx.tree); err != nil {
		return err
	}

	s.tree = tx.tree
	s.hash = hashOf(s.tree)

	if klogV := klog.V(3); klogV.Enabled() {
		klogV.Info("superset updated with ", s.tree.Len(), " entries, hash ", strconv.FormatUint(s.hash, 16))
		if klogV := klog.V(4); klogV.Enabled() {
			s.tree.Ascend(func(i btree.Item) bool {
				kv := i.(*KV)
				klogV.Info("- entry: ", kv.Path(), " prefab=", kv.Prefab, " qty=", kv.Quantity)
				return true
			})
		}
	}

	return nil
}

type Tx struct {
	tree    *btree.BTree
	changes uint
}

// SetModule inserts or replaces a module and its direct lines.
func (tx *Tx) SetModule(m *Module) {
	tx.DelModule(m.Name)

	tx.tree.ReplaceOrInsert(&KV{Set: Modules, Module: m.Name, Info: m})

	for _, line := range m.Lines {
		kv := &KV{Set: Lines, Module: m.Name, Ident: line.Ident}
		if prev := tx.tree.Get(kv); prev != nil {
			kv.Quantity = prev.(*KV).Quantity
		}
		kv.Quantity += line.Qty
		tx.tree.ReplaceOrInsert(kv)
	}

	tx.changes++
}

// DelModule removes a module and its direct lines.
func (tx *Tx) DelModule(name string) {
	if tx.tree.Delete(&KV{Set: Modules, Module: name}) == nil {
		return
	}

	toDel := make([]*KV, 0)
	tx.tree.AscendGreaterOrEqual(&KV{Set: Lines, Module: name}, func(i btree.Item) bool {
		kv := i.(*KV)
		if kv.Set != Lines || kv.Module != name {
			return false
		}
		toDel = append(toDel, kv)
		return true
	})

	for _, kv := range toDel {
		tx.tree.Delete(kv)
	}

	tx.changes++
}

// Reset clears the superset data
func (tx *Tx) Reset() {
	if tx.tree.Len() != 0 {
		tx.tree.Clear(false)
		tx.changes++
	}
}

// GetSymbolInclusion returns the modules including ident. With usePrefab
// set, modules flagged as prefab are not expanded into their parents.
func (s *Superset) GetSymbolInclusion(ident string, usePrefab bool) (*Inclusion, error) {
	s.RLock()
	defer s.RUnlock()

	if !s.tree.Has(&KV{Set: Symbols, Ident: ident}) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, ident)
	}

	inc := &Inclusion{
		Schema:    InclusionSchema,
		Ident:     ident,
		UsePrefab: usePrefab,
		Entries:   make([]InclusionEntry, 0),
	}

	s.tree.AscendGreaterOrEqual(&KV{Set: Inclusions, Prefab: usePrefab, Ident: ident}, func(i btree.Item) bool {
		kv := i.(*KV)
		if kv.Set != Inclusions || kv.Prefab != usePrefab || kv.Ident != ident {
			return false
		}

		inc.Entries = append(inc.Entries, InclusionEntry{
			Module:   kv.Module,
			Quantity: kv.Quantity,
			Via:      kv.Via,
		})
		inc.Total += kv.Quantity
		return true
	})

	return inc, nil
}

// Symbols returns every known symbol ident, sorted.
func (s *Superset) Symbols() []string {
	s.RLock()
	defer s.RUnlock()

	idents := make([]string, 0)
	each(s.tree, Symbols, func(kv *KV) bool {
		idents = append(idents, kv.Ident)
		return true
	})
	return idents
}

// Module returns the module named name.
func (s *Superset) Module(name string) (*Module, bool) {
	s.RLock()
	defer s.RUnlock()

	i := s.tree.Get(&KV{Set: Modules, Module: name})
	if i == nil {
		return nil, false
	}
	return i.(*KV).Info, true
}

func (s *Superset) Stats() Stats {
	s.RLock()
	defer s.RUnlock()

	st := Stats{Hash: strconv.FormatUint(s.hash, 16)}
	count := func(n *int) func(*KV) bool {
		return func(*KV) bool {
			*n++
			return true
		}
	}
	each(s.tree, Modules, count(&st.Modules))
	each(s.tree, Symbols, count(&st.Symbols))
	each(s.tree, Inclusions, count(&st.Inclusions))
	return st
}

// each iterate over each item in the given set, stopping if the callback returns false
func each(tree *btree.BTree, set Set, callback func(*KV) bool) {
	tree.AscendGreaterOrEqual(&KV{Set: set}, func(i btree.Item) bool {
		kv := i.(*KV)
		if kv.Set != set {
			return false
		}
		return callback(kv)
	})
}

func clearSet(tree *btree.BTree, set Set) {
	toDel := make([]btree.Item, 0)
	each(tree, set, func(kv *KV) bool {
		toDel = append(toDel, kv)
		return true
	})
	for _, i := range toDel {
		tree.Delete(i)
	}
}

// reindex recomputes the Symbols and Inclusions sets from Modules and Lines.
func reindex(tree *btree.BTree) error {
	clearSet(tree, Symbols)
	clearSet(tree, Inclusions)

	modules := map[string]*Module{}
	names := make([]string, 0)
	each(tree, Modules, func(kv *KV) bool {
		modules[kv.Module] = kv.Info
		names = append(names, kv.Module)
		return true
	})

	if err := checkCycles(names, modules); err != nil {
		return err
	}

	// the tree must not change while it is iterated
	symbols := make([]*KV, 0)
	each(tree, Lines, func(kv *KV) bool {
		symbols = append(symbols, &KV{Set: Symbols, Ident: kv.Ident})
		return true
	})

	inclusions := make([]*KV, 0)
	for _, prefab := range []bool{false, true} {
		x := &expander{tree: tree, modules: modules, prefab: prefab, memo: map[string]map[string]reach{}}
		for _, name := range names {
			for ident, r := range x.expand(name) {
				inclusions = append(inclusions, &KV{
					Set:      Inclusions,
					Prefab:   prefab,
					Ident:    ident,
					Module:   name,
					Quantity: r.qty,
					Via:      r.via,
				})
			}
		}
	}

	for _, kv := range symbols {
		tree.ReplaceOrInsert(kv)
	}
	for _, kv := range inclusions {
		tree.ReplaceOrInsert(kv)
	}

	return nil
}

func checkCycles(names []string, modules map[string]*Module) error {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(names))
	path := make([]string, 0)

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("%w: %s -> %s", ErrCycle, strings.Join(path, " -> "), name)
		case done:
			return nil
		}

		state[name] = visiting
		path = append(path, name)

		for _, line := range modules[name].Lines {
			if _, ok := modules[line.Ident]; !ok {
				continue
			}
			if err := visit(line.Ident); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[name] = done
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

type reach struct {
	qty int
	via []string
}

type expander struct {
	tree    *btree.BTree
	modules map[string]*Module
	prefab  bool
	memo    map[string]map[string]reach
}

// expand returns every symbol reachable from the named module with its
// multiplied quantity. Sub-assemblies are expanded unless the expander runs
// in prefab mode and the sub-assembly is itself a prefab.
func (x *expander) expand(name string) map[string]reach {
	if out, ok := x.memo[name]; ok {
		return out
	}

	out := map[string]reach{}
	add := func(ident string, r reach) {
		prev, ok := out[ident]
		if !ok {
			out[ident] = r
			return
		}
		prev.qty += r.qty
		if viaLess(r.via, prev.via) {
			prev.via = r.via
		}
		out[ident] = prev
	}

	eachLine := func(callback func(ident string, qty int)) {
		x.tree.AscendGreaterOrEqual(&KV{Set: Lines, Module: name}, func(i btree.Item) bool {
			kv := i.(*KV)
			if kv.Set != Lines || kv.Module != name {
				return false
			}
			callback(kv.Ident, kv.Quantity)
			return true
		})
	}

	eachLine(func(ident string, qty int) {
		add(ident, reach{qty: qty})

		sub, isModule := x.modules[ident]
		if !isModule || (x.prefab && sub.Prefab) {
			return
		}

		for subIdent, r := range x.expand(sub.Name) {
			via := make([]string, 0, len(r.via)+1)
			via = append(via, sub.Name)
			via = append(via, r.via...)
			add(subIdent, reach{qty: r.qty * qty, via: via})
		}
	})

	x.memo[name] = out
	return out
}

// viaLess orders paths element-wise, a shorter prefix first.
func viaLess(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func hashOf(tree *btree.BTree) uint64 {
	h := xxhash.New()

	tree.Ascend(func(i btree.Item) bool {
		kv := i.(*KV)
		if kv.Set != Modules && kv.Set != Lines {
			return false
		}

		h.Write([]byte(kv.Path()))
		if kv.Info != nil && kv.Info.Prefab {
			h.Write([]byte{'P'})
		}
		h.Write([]byte(strconv.Itoa(kv.Quantity)))
		h.Write([]byte{0})
		return true
	})

	return h.Sum64()
}
