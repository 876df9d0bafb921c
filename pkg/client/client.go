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

// Package client calls the prefab JSON-RPC API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/tendril-eda/prefab-server/pkg/jsonrpc"
	"github.com/tendril-eda/prefab-server/pkg/superset"
)

const DefaultURL = "http://127.0.0.1:1081/prefab"

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// FlagSet matches flag.FlagSet and pflag.FlagSet
type FlagSet interface {
	DurationVar(varPtr *time.Duration, name string, value time.Duration, doc string)
	StringVar(varPtr *string, name, value, doc string)
}

type Client struct {
	// URL is the prefab endpoint, including the mount path
	URL string

	// Timeout bounds each call; zero means no timeout.
	Timeout time.Duration

	HTTP *http.Client

	nextID uint64
}

func New(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{URL: url, HTTP: http.DefaultClient}
}

// DefaultFlags registers this client's values to the standard flags.
func (c *Client) DefaultFlags(flags FlagSet) {
	flags.StringVar(&c.URL, "url", DefaultURL, "prefab JSON-RPC endpoint to call")
	flags.DurationVar(&c.Timeout, "timeout", 30*time.Second, "call timeout (0 waits forever)")
}

// Call invokes method with params and decodes the result into result,
// which may be nil. A JSON-RPC error is returned as a *jsonrpc.Error.
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	id := atomic.AddUint64(&c.nextID, 1)

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req := struct {
		JSONRPC string      `json:"jsonrpc"`
		ID      uint64      `json:"id"`
		Method  string      `json:"method"`
		Params  interface{} `json:"params,omitempty"`
	}{jsonrpc.Version, id, method, params}

	body, err := codec.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpRes, err := httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer httpRes.Body.Close()

	data, err := io.ReadAll(httpRes.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", method, err)
	}
	if httpRes.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected HTTP status %s", method, httpRes.Status)
	}

	res := &jsonrpc.Response{}
	if err := codec.Unmarshal(data, res); err != nil {
		return fmt.Errorf("%s: invalid response: %w", method, err)
	}
	if res.Error != nil {
		return res.Error
	}
	if string(res.ID) != fmt.Sprint(id) {
		return fmt.Errorf("%s: response id %s does not match request id %d", method, res.ID, id)
	}

	if result == nil {
		return nil
	}
	if err := codec.Unmarshal(res.Result, result); err != nil {
		return fmt.Errorf("%s: failed to decode result: %w", method, err)
	}
	return nil
}

func (c *Client) Echo(ctx context.Context, data interface{}) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.Call(ctx, "echo", []interface{}{data}, &out)
	return out, err
}

// GetSymbolInclusion calls get_symbol_inclusion and decodes the returned
// document.
func (c *Client) GetSymbolInclusion(ctx context.Context, ident string) (*superset.Inclusion, error) {
	var doc string
	if err := c.Call(ctx, "get_symbol_inclusion", []string{ident}, &doc); err != nil {
		return nil, err
	}
	return superset.DecodeInclusion(doc)
}

func (c *Client) FindSymbols(ctx context.Context, pattern string) ([]string, error) {
	var symbols []string
	err := c.Call(ctx, "find_symbols", []string{pattern}, &symbols)
	return symbols, err
}

type Status struct {
	State   string          `json:"state"`
	Dataset *superset.Stats `json:"dataset,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	st := &Status{}
	if err := c.Call(ctx, "status", nil, st); err != nil {
		return nil, err
	}
	return st, nil
}
