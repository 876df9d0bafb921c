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

// Package resource implements a routable resource tree: each node maps
// path segments to child handlers, and a child that is itself a
// [Resource] routes the rest of the path.
package resource

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"k8s.io/klog/v2"
)

type Resource struct {
	mu       sync.RWMutex
	children map[string]http.Handler
}

func New() *Resource {
	return &Resource{children: map[string]http.Handler{}}
}

// PutChild mounts child at the given path segment, replacing any handler
// already mounted there. Other children are left untouched.
func (r *Resource) PutChild(segment string, child http.Handler) {
	if segment == "" || strings.Contains(segment, "/") {
		panic("resource: invalid path segment " + segment)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.children[segment]; exists {
		klog.Warning("replacing resource at ", segment)
	}
	r.children[segment] = child
}

func (r *Resource) Child(segment string) (http.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	child, ok := r.children[segment]
	return child, ok
}

// Children returns the mounted segments, sorted.
func (r *Resource) Children() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	segments := make([]string, 0, len(r.children))
	for segment := range r.children {
		segments = append(segments, segment)
	}
	sort.Strings(segments)
	return segments
}

func (r *Resource) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	segment, rest := splitPath(req.URL.Path)

	child, ok := r.Child(segment)
	if !ok {
		http.NotFound(w, req)
		return
	}

	// same shallow copy as http.StripPrefix
	r2 := new(http.Request)
	*r2 = *req
	r2.URL = new(url.URL)
	*r2.URL = *req.URL
	r2.URL.Path = "/" + rest
	r2.URL.RawPath = ""

	child.ServeHTTP(w, r2)
}

func splitPath(p string) (segment, rest string) {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i], p[i+1:]
	}
	return p, ""
}
