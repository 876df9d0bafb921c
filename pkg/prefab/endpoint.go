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

package prefab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru"
	"k8s.io/klog/v2"

	"github.com/tendril-eda/prefab-server/pkg/jsonrpc"
	"github.com/tendril-eda/prefab-server/pkg/metrics"
	"github.com/tendril-eda/prefab-server/pkg/superset"
)

var ErrColdStart = errors.New("prefab cold start failed")

// Index is the dataset the endpoint answers from. It is never mutated by
// the endpoint once built.
type Index interface {
	GetSymbolInclusion(ident string, usePrefab bool) (*superset.Inclusion, error)
	Symbols() []string
	Stats() superset.Stats
}

// Loader builds the Index. It is called at most once successfully per
// Endpoint.
type Loader func(ctx context.Context) (Index, error)

type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type indexRef struct {
	Index
}

// Endpoint serves the prefab JSON-RPC methods over a lazily built Index.
type Endpoint struct {
	load  Loader
	cache *lru.Cache
	rpc   *jsonrpc.Server

	index atomic.Pointer[indexRef]

	// warmupLock serializes cold starts
	warmupLock sync.Mutex

	stateLock sync.Mutex
	state     State
	lastErr   error
}

func NewEndpoint(load Loader, cacheSize int) *Endpoint {
	ep := &Endpoint{
		load: load,
		rpc:  jsonrpc.NewServer(),
	}

	if cacheSize > 0 {
		cache, err := lru.New(cacheSize)
		if err != nil {
			panic(err) // only fails on non-positive sizes
		}
		ep.cache = cache
	}

	ep.rpc.Observer = metrics.RPCObserver{}
	ep.register(ep.rpc)

	return ep
}

func (ep *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ep.rpc.ServeHTTP(w, r)
}

// Methods returns the JSON-RPC method names served by the endpoint.
func (ep *Endpoint) Methods() []string {
	return ep.rpc.Methods()
}

func (ep *Endpoint) setState(state State, err error) {
	ep.stateLock.Lock()
	defer ep.stateLock.Unlock()
	ep.state, ep.lastErr = state, err
}

func (ep *Endpoint) State() State {
	ep.stateLock.Lock()
	defer ep.stateLock.Unlock()
	return ep.state
}

func (ep *Endpoint) ready() Index {
	if ref := ep.index.Load(); ref != nil {
		return ref.Index
	}
	return nil
}

// Warmup builds the index unless it is already built. Concurrent callers
// wait for the cold start in progress. A failed cold start leaves the index
// unset so the next call tries again.
func (ep *Endpoint) Warmup(ctx context.Context) error {
	if ep.ready() != nil {
		return nil
	}

	ep.warmupLock.Lock()
	defer ep.warmupLock.Unlock()

	if ep.ready() != nil {
		return nil
	}

	ep.setState(Initializing, nil)
	klog.Info("starting prefab cold start")

	start := time.Now()
	index, err := ep.load(ctx)
	if err == nil && index == nil {
		err = errors.New("loader returned no index")
	}
	elapsed := time.Since(start)

	metrics.ObserveWarmup(err, elapsed)

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrColdStart, err)
		ep.setState(Failed, err)
		klog.Error(err)
		return err
	}

	ep.index.Store(&indexRef{index})
	ep.setState(Ready, nil)
	klog.Infof("prefab cold start complete in %v", elapsed.Round(time.Millisecond))

	return nil
}

func (ep *Endpoint) indexOrWarmup(ctx context.Context) (Index, error) {
	if index := ep.ready(); index != nil {
		return index, nil
	}
	if err := ep.Warmup(ctx); err != nil {
		return nil, err
	}
	return ep.ready(), nil
}

// Echo returns data unchanged.
func (ep *Endpoint) Echo(data interface{}) interface{} {
	return data
}

// GetSymbolInclusion returns the encoded inclusion of ident, expanding
// every sub-assembly including prefabs.
func (ep *Endpoint) GetSymbolInclusion(ctx context.Context, ident string) (string, error) {
	index, err := ep.indexOrWarmup(ctx)
	if err != nil {
		return "", err
	}

	klog.Info("INCL ", ident)

	if ep.cache != nil {
		if doc, ok := ep.cache.Get(ident); ok {
			return doc.(string), nil
		}
	}

	inc, err := index.GetSymbolInclusion(ident, false)
	if err != nil {
		return "", fmt.Errorf("inclusion of %q: %w", ident, err)
	}

	doc, err := inc.Encode()
	if err != nil {
		return "", fmt.Errorf("encoding inclusion of %q: %w", ident, err)
	}

	if ep.cache != nil {
		ep.cache.Add(ident, doc)
	}

	return doc, nil
}

// FindSymbols returns the known symbols matching a glob pattern; an empty
// pattern matches every symbol.
func (ep *Endpoint) FindSymbols(ctx context.Context, pattern string) ([]string, error) {
	var g glob.Glob
	if pattern != "" {
		var err error
		if g, err = glob.Compile(pattern); err != nil {
			return nil, jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "invalid pattern %q: %v", pattern, err)
		}
	}

	index, err := ep.indexOrWarmup(ctx)
	if err != nil {
		return nil, err
	}

	klog.V(1).Info("FIND ", pattern)

	symbols := index.Symbols()
	if g == nil {
		return symbols, nil
	}

	matches := make([]string, 0)
	for _, ident := range symbols {
		if g.Match(ident) {
			matches = append(matches, ident)
		}
	}
	return matches, nil
}

type Status struct {
	State   string          `json:"state"`
	Dataset *superset.Stats `json:"dataset,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Status reports the endpoint state. It never triggers a cold start.
func (ep *Endpoint) Status() Status {
	ep.stateLock.Lock()
	st := Status{State: ep.state.String()}
	if ep.lastErr != nil {
		st.Error = ep.lastErr.Error()
	}
	ep.stateLock.Unlock()

	if index := ep.ready(); index != nil {
		stats := index.Stats()
		st.Dataset = &stats
	}
	return st
}
