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
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tendril-eda/prefab-server/pkg/resource"
	"github.com/tendril-eda/prefab-server/pkg/server"
)

const readHeaderTimeout = 5 * time.Second

// Service is the runnable prefab HTTP service. Its lifecycle belongs to the
// caller: Run or Serve block until the context is done.
type Service struct {
	Config *Config
	Root   *resource.Resource
	Prefab *PrefabServer
	HTTP   *http.Server
}

// GetService returns a service for the prefab resource tree bound to port.
func GetService(port int, config *Config) *Service {
	c := NewConfig()
	if config != nil {
		*c = *config
	}
	c.Port = port
	return NewService(c)
}

// NewService builds a service from a copy of config.
func NewService(config *Config) *Service {
	c := NewConfig()
	if config != nil {
		*c = *config
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	config = c

	ps := NewPrefabServer(nil, config)
	root := ps.Setup()

	return &Service{
		Config: config,
		Root:   root,
		Prefab: ps,
		HTTP: &http.Server{
			Handler:           root,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Run listens on the configured spec and serves until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	lis, err := server.Listen(s.Config.ListenSpec())
	if err != nil {
		s.Prefab.Stop()
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is done, then shuts down gracefully.
func (s *Service) Serve(ctx context.Context, lis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		klog.Info("serving prefab on ", lis.Addr())
		if err := s.HTTP.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.Prefab.Stop()

		klog.Info("prefab service stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Config.ShutdownTimeout)
		defer cancel()
		return s.HTTP.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
