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
	"time"

	"github.com/spf13/pflag"

	"github.com/tendril-eda/prefab-server/pkg/server"
	"github.com/tendril-eda/prefab-server/pkg/superset"
)

const (
	DefaultPort            = 1081
	DefaultWarmupDelay     = time.Second
	DefaultCacheSize       = 1024
	DefaultShutdownTimeout = 5 * time.Second

	// MountPath is the resource tree segment serving the endpoint.
	MountPath = "prefab"
)

type Config struct {
	BindSpec    string
	Port        int
	DatasetPath string

	// WarmupDelay is the delay between setup and the background cold
	// start. A negative delay disables it; queries still warm up on demand.
	WarmupDelay     time.Duration
	CacheSize       int
	ShutdownTimeout time.Duration

	// Load overrides the dataset loader; by default DatasetPath is loaded.
	Load Loader
}

func NewConfig() *Config {
	return &Config{
		BindSpec:        server.TCPSpec(DefaultPort),
		WarmupDelay:     DefaultWarmupDelay,
		CacheSize:       DefaultCacheSize,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.BindSpec, "listen", server.TCPSpec(DefaultPort), "serve the prefab JSON-RPC API (protocol://address)")
	flags.IntVarP(&c.Port, "port", "p", 0, "TCP port to serve on, overrides --listen")
	flags.StringVarP(&c.DatasetPath, "dataset", "d", "superset.yaml", "superset file loaded at cold start")
	flags.DurationVar(&c.WarmupDelay, "warmup-delay", DefaultWarmupDelay, "delay before the background cold start (negative disables it)")
	flags.IntVar(&c.CacheSize, "cache-size", DefaultCacheSize, "number of encoded inclusion results kept in memory (0 disables caching)")
	flags.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", DefaultShutdownTimeout, "graceful shutdown timeout")
}

// ListenSpec returns the effective listen spec.
func (c *Config) ListenSpec() string {
	if c.Port != 0 {
		return server.TCPSpec(c.Port)
	}
	if c.BindSpec == "" {
		return server.TCPSpec(DefaultPort)
	}
	return c.BindSpec
}

func (c *Config) loader() Loader {
	if c.Load != nil {
		return c.Load
	}
	return SupersetLoader(c.DatasetPath)
}

// SupersetLoader returns a Loader reading the superset file at path.
func SupersetLoader(path string) Loader {
	return func(ctx context.Context) (Index, error) {
		if path == "" {
			return nil, errors.New("no dataset configured")
		}

		s, err := superset.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
