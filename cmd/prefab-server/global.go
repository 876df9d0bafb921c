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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"
)

func waitForTermSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	<-ch
}

// setupGlobal returns a context cancelled on the first term signal. A second
// signal exits immediately.
func setupGlobal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		waitForTermSignal()
		klog.Info("term signal received, stopping")
		cancel()

		waitForTermSignal()
		klog.Fatal("forced exit after second term signal")
	}()

	return ctx
}
