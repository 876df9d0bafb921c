//go:build !windows
// +build !windows

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

package server

import (
	"os"
	"syscall"
)

func osPrepareListen(protocol, addr string) func() {
	switch protocol {
	case "unix":
		os.Remove(addr)
		prevMask := syscall.Umask(0007)
		return func() { syscall.Umask(prevMask) }
	}

	return func() {}
}
