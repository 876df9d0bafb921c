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
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/tendril-eda/prefab-server/pkg/resource"
)

// PrefabServer mounts the prefab endpoint on a resource tree. If no root is
// provided, one is created by Setup.
type PrefabServer struct {
	Endpoint *Endpoint

	root   *resource.Resource
	config *Config

	mu     sync.Mutex
	warmup *time.Timer
}

func NewPrefabServer(root *resource.Resource, config *Config) *PrefabServer {
	klog.Info("initializing prefab resource")
	if config == nil {
		config = NewConfig()
	}
	return &PrefabServer{root: root, config: config}
}

// Setup mounts a new endpoint at MountPath and schedules its cold start
// after the configured warmup delay, so the server accepts connections
// before the dataset is loaded. It returns the root of the tree.
func (p *PrefabServer) Setup() *resource.Resource {
	if p.root == nil {
		klog.Info("creating site root")
		p.root = resource.New()
	}

	klog.Info("adding JSON-RPC prefab resource")
	ep := NewEndpoint(p.config.loader(), p.config.CacheSize)

	p.mu.Lock()
	if p.warmup != nil {
		p.warmup.Stop()
		p.warmup = nil
	}
	p.Endpoint = ep
	if p.config.WarmupDelay >= 0 {
		p.warmup = time.AfterFunc(p.config.WarmupDelay, func() {
			// failures are logged by Warmup and retried on the next query
			_ = ep.Warmup(context.Background())
		})
	}
	p.mu.Unlock()

	p.root.PutChild(MountPath, ep)
	return p.root
}

// Stop cancels the scheduled cold start if it has not fired yet.
func (p *PrefabServer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.warmup != nil {
		p.warmup.Stop()
		p.warmup = nil
	}
}

// GetResource builds the prefab resource tree on root, creating the root
// when nil.
func GetResource(root *resource.Resource, config *Config) *resource.Resource {
	return NewPrefabServer(root, config).Setup()
}
