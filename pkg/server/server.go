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
	"fmt"
	"net"
	"strings"

	"k8s.io/klog/v2"
)

// ParseBindSpec splits a protocol://address listen spec.
func ParseBindSpec(bindSpec string) (protocol, addr string, err error) {
	parts := strings.SplitN(bindSpec, "://", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid listen spec: expected protocol://address format but got %q", bindSpec)
	}

	protocol, addr = parts[0], parts[1]

	switch protocol {
	case "tcp", "tcp4", "tcp6", "unix":
	default:
		return "", "", fmt.Errorf("invalid listen spec %q: unsupported protocol %q", bindSpec, protocol)
	}

	return protocol, addr, nil
}

// TCPSpec returns the listen spec for a TCP port on all interfaces.
func TCPSpec(port int) string {
	return fmt.Sprintf("tcp://:%d", port)
}

func Listen(bindSpec string) (net.Listener, error) {
	protocol, addr, err := ParseBindSpec(bindSpec)
	if err != nil {
		return nil, err
	}

	// handle protocol specifics
	afterListen := osPrepareListen(protocol, addr)

	lis, err := net.Listen(protocol, addr)
	afterListen()

	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", bindSpec, err)
	}

	klog.Info("listening on ", bindSpec)

	return lis, nil
}
