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
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

const Version = "2.0"

// Standard error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is a JSON-RPC request. A missing JSONRPC member means a 1.0
// request. Requests without an ID are notifications.
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || (r.JSONRPC == "" && bytes.Equal(r.ID, []byte("null")))
}

// Response carries exactly one of Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// responseV1 always carries result, error and id; the unused one is null.
type responseV1 struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
	ID     json.RawMessage `json:"id"`
}

func (r *Response) MarshalJSON() ([]byte, error) {
	if r.JSONRPC != "" {
		type v2 Response
		return codec.Marshal((*v2)(r))
	}

	v1 := responseV1{Result: r.Result, Error: r.Error, ID: r.ID}
	if len(v1.Result) == 0 || v1.Error != nil {
		v1.Result = json.RawMessage("null")
	}
	if len(v1.ID) == 0 {
		v1.ID = json.RawMessage("null")
	}
	return codec.Marshal(v1)
}

type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func Errorf(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Params holds the raw parameters of a request, either positional (a JSON
// array) or named (a JSON object).
type Params json.RawMessage

func (p Params) IsEmpty() bool {
	trimmed := bytes.TrimSpace(p)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Bind decodes the parameters into targets. Positional parameters are
// assigned in order; named parameters are looked up by names[i]. Every
// target is required.
func (p Params) Bind(names []string, targets ...interface{}) error {
	if len(names) != len(targets) {
		panic("jsonrpc: Bind called with mismatched names and targets")
	}

	if p.IsEmpty() {
		if len(targets) == 0 {
			return nil
		}
		return Errorf(CodeInvalidParams, "missing param %q", names[0])
	}

	trimmed := bytes.TrimSpace(p)

	switch trimmed[0] {
	case '[':
		var positional []json.RawMessage
		if err := codec.Unmarshal(trimmed, &positional); err != nil {
			return Errorf(CodeInvalidParams, "invalid params: %v", err)
		}
		if len(positional) > len(targets) {
			return Errorf(CodeInvalidParams, "too many params: expected %d, got %d", len(targets), len(positional))
		}
		if len(positional) < len(targets) {
			return Errorf(CodeInvalidParams, "missing param %q", names[len(positional)])
		}
		for i, raw := range positional {
			if err := codec.Unmarshal(raw, targets[i]); err != nil {
				return Errorf(CodeInvalidParams, "invalid param %q: %v", names[i], err)
			}
		}

	case '{':
		var named map[string]json.RawMessage
		if err := codec.Unmarshal(trimmed, &named); err != nil {
			return Errorf(CodeInvalidParams, "invalid params: %v", err)
		}
		for i, name := range names {
			raw, ok := named[name]
			if !ok {
				return Errorf(CodeInvalidParams, "missing param %q", name)
			}
			if err := codec.Unmarshal(raw, targets[i]); err != nil {
				return Errorf(CodeInvalidParams, "invalid param %q: %v", name, err)
			}
		}
		if len(named) > len(names) {
			return Errorf(CodeInvalidParams, "unexpected params: expected %v", names)
		}

	default:
		return Errorf(CodeInvalidParams, "params must be an array or an object")
	}

	return nil
}
