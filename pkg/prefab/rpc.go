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
	"encoding/json"
	"errors"

	"github.com/tendril-eda/prefab-server/pkg/jsonrpc"
	"github.com/tendril-eda/prefab-server/pkg/superset"
)

// Application error codes, in the JSON-RPC server error range.
const (
	CodeColdStartFailed = -32000
	CodeUnknownSymbol   = -32001
	CodeLookupFailed    = -32002
)

func (ep *Endpoint) register(s *jsonrpc.Server) {
	s.Register("echo", ep.rpcEcho)
	s.Register("get_symbol_inclusion", ep.rpcGetSymbolInclusion)
	s.Register("find_symbols", ep.rpcFindSymbols)
	s.Register("status", ep.rpcStatus)
}

func (ep *Endpoint) rpcEcho(_ context.Context, p jsonrpc.Params) (interface{}, error) {
	var data json.RawMessage
	if err := p.Bind([]string{"data"}, &data); err != nil {
		return nil, err
	}
	return ep.Echo(data), nil
}

func (ep *Endpoint) rpcGetSymbolInclusion(ctx context.Context, p jsonrpc.Params) (interface{}, error) {
	var ident string
	if err := p.Bind([]string{"ident"}, &ident); err != nil {
		return nil, err
	}

	doc, err := ep.GetSymbolInclusion(ctx, ident)
	if err != nil {
		return nil, rpcError(err)
	}
	return doc, nil
}

func (ep *Endpoint) rpcFindSymbols(ctx context.Context, p jsonrpc.Params) (interface{}, error) {
	var pattern string
	if !p.IsEmpty() {
		if err := p.Bind([]string{"pattern"}, &pattern); err != nil {
			return nil, err
		}
	}

	symbols, err := ep.FindSymbols(ctx, pattern)
	if err != nil {
		return nil, rpcError(err)
	}
	return symbols, nil
}

func (ep *Endpoint) rpcStatus(_ context.Context, p jsonrpc.Params) (interface{}, error) {
	if err := p.Bind(nil); err != nil {
		return nil, err
	}
	return ep.Status(), nil
}

func rpcError(err error) error {
	var rpcErr *jsonrpc.Error
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, ErrColdStart):
		return &jsonrpc.Error{Code: CodeColdStartFailed, Message: err.Error()}
	case errors.Is(err, superset.ErrUnknownSymbol):
		return &jsonrpc.Error{Code: CodeUnknownSymbol, Message: err.Error()}
	}
	return &jsonrpc.Error{Code: CodeLookupFailed, Message: err.Error()}
}
