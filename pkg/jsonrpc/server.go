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

package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// MaxBodyBytes bounds the size of a request body.
const MaxBodyBytes = 8 << 20

// Method handles one JSON-RPC method. A returned *Error is sent as is; any
// other error becomes an internal error.
type Method func(ctx context.Context, params Params) (interface{}, error)

// Observer is notified after each call. code is 0 on success.
type Observer interface {
	ObserveCall(method string, code int, elapsed time.Duration)
}

// Server dispatches JSON-RPC requests received over HTTP POST to
// registered methods by name.
type Server struct {
	Observer Observer

	mu      sync.RWMutex
	methods map[string]Method
}

func NewServer() *Server {
	return &Server{methods: map[string]Method{}}
}

func (s *Server) Register(name string, m Method) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.methods[name]; exists {
		panic("jsonrpc: method registered twice: " + name)
	}
	s.methods[name] = m
}

// Methods returns the registered method names, sorted.
func (s *Server) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) method(name string) (Method, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.methods[name]
	return m, ok
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "JSON-RPC requires POST", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		http.Error(w, "failed to read request", http.StatusBadRequest)
		return
	}
	if len(body) > MaxBodyBytes {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	var out interface{}

	body = bytes.TrimSpace(body)
	switch {
	case !json.Valid(body):
		out = errorResponse(json.RawMessage("null"), Version, Errorf(CodeParseError, "parse error"))

	case body[0] == '[':
		out = s.handleBatch(r.Context(), body)

	default:
		if res := s.handle(r.Context(), body); res != nil {
			out = res
		}
	}

	if out == nil {
		// notifications only
		w.WriteHeader(http.StatusNoContent)
		return
	}

	data, err := codec.Marshal(out)
	if err != nil {
		klog.Error("failed to encode JSON-RPC response: ", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleBatch(ctx context.Context, body []byte) interface{} {
	var batch []json.RawMessage
	if err := codec.Unmarshal(body, &batch); err != nil || len(batch) == 0 {
		return errorResponse(json.RawMessage("null"), Version, Errorf(CodeInvalidRequest, "invalid batch"))
	}

	responses := make([]*Response, 0, len(batch))
	for _, raw := range batch {
		if res := s.handle(ctx, raw); res != nil {
			responses = append(responses, res)
		}
	}

	if len(responses) == 0 {
		return nil
	}
	return responses
}

// handle processes a single request, returning nil for notifications.
func (s *Server) handle(ctx context.Context, raw []byte) *Response {
	req := &Request{}
	if err := codec.Unmarshal(raw, req); err != nil {
		return errorResponse(json.RawMessage("null"), Version, Errorf(CodeInvalidRequest, "invalid request: %v", err))
	}

	id := req.ID
	if len(id) == 0 {
		id = json.RawMessage("null")
	}

	if req.JSONRPC != "" && req.JSONRPC != Version {
		return errorResponse(id, Version, Errorf(CodeInvalidRequest, "unsupported JSON-RPC version %q", req.JSONRPC))
	}
	if req.Method == "" {
		return errorResponse(id, req.JSONRPC, Errorf(CodeInvalidRequest, "method is required"))
	}

	start := time.Now()
	result, rpcErr := s.call(ctx, req)
	elapsed := time.Since(start)

	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
	}
	if s.Observer != nil {
		s.Observer.ObserveCall(req.Method, code, elapsed)
	}
	klog.V(2).Infof("rpc %s id=%s code=%d in %v", req.Method, string(id), code, elapsed)

	if req.IsNotification() {
		return nil
	}
	if rpcErr != nil {
		return errorResponse(id, req.JSONRPC, rpcErr)
	}
	return &Response{JSONRPC: req.JSONRPC, ID: id, Result: result}
}

func (s *Server) call(ctx context.Context, req *Request) (result json.RawMessage, rpcErr *Error) {
	m, ok := s.method(req.Method)
	if !ok {
		return nil, Errorf(CodeMethodNotFound, "method not found: %s", req.Method)
	}

	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("rpc %s panicked: %v", req.Method, r)
			result, rpcErr = nil, Errorf(CodeInternalError, "internal error")
		}
	}()

	value, err := m(ctx, Params(req.Params))
	if err != nil {
		return nil, AsError(err)
	}

	result, err = codec.Marshal(value)
	if err != nil {
		return nil, Errorf(CodeInternalError, "failed to encode result: %v", err)
	}
	return result, nil
}

// AsError converts err into a JSON-RPC error object.
func AsError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &Error{Code: CodeInternalError, Message: err.Error()}
}

func errorResponse(id json.RawMessage, version string, err *Error) *Response {
	return &Response{JSONRPC: version, ID: id, Error: err}
}
