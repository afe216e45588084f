/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package zabbix reads last-known item values through the frontend JSON-RPC API.
package zabbix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

const (
	jsonRPCVersion     = "2.0"
	methodItemGet      = "item.get"
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBodyBytes  = 4096
)

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	Auth    string      `json:"auth,omitempty"`
	ID      uint64      `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      uint64          `json:"id"`
}

type itemGetParams struct {
	Output    []string            `json:"output"`
	HostIDs   []string            `json:"hostids"`
	Filter    map[string][]string `json:"filter"`
	Monitored bool                `json:"monitored"`
}

type item struct {
	ItemID    string `json:"itemid"`
	HostID    string `json:"hostid"`
	Key       string `json:"key_"`
	LastValue string `json:"lastvalue"`
	Units     string `json:"units"`
}

// Client implements hostmetrics.SampleSource against item.get.
type Client struct {
	url        string
	token      string
	legacyAuth bool
	httpClient *http.Client
	log        logger.Logger
	nextID     atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(z *Client) {
		z.httpClient = c
	}
}

func WithLogger(log logger.Logger) Option {
	return func(z *Client) {
		z.log = log
	}
}

// NewClient builds a client for the api_jsonrpc.php endpoint described by cfg.
func NewClient(cfg *models.ZabbixSourceConfig, opts ...Option) (*Client, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errMissingURL
	}

	c := &Client{
		url:        cfg.URL,
		token:      cfg.APIToken,
		legacyAuth: cfg.LegacyAuth,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		log:        logger.NewTestLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// LatestSamples asks for the exact keys on monitored hosts only.
func (c *Client) LatestSamples(
	ctx context.Context, hostIDs []models.HostID, keys []models.MetricKey) ([]models.RawSample, error) {
	if len(hostIDs) == 0 || len(keys) == 0 {
		return nil, nil
	}

	params := itemGetParams{
		Output:    []string{"itemid", "hostid", "key_", "lastvalue", "units"},
		HostIDs:   make([]string, len(hostIDs)),
		Filter:    map[string][]string{"key_": make([]string, len(keys))},
		Monitored: true,
	}

	for i, id := range hostIDs {
		params.HostIDs[i] = string(id)
	}

	for i, k := range keys {
		params.Filter["key_"][i] = string(k)
	}

	var items []item
	if err := c.call(ctx, methodItemGet, params, &items); err != nil {
		return nil, err
	}

	samples := make([]models.RawSample, 0, len(items))
	for _, it := range items {
		samples = append(samples, models.RawSample{
			HostID:    models.HostID(it.HostID),
			MetricKey: models.MetricKey(it.Key),
			Value:     it.LastValue,
			Unit:      it.Units,
		})
	}

	c.log.Debug().
		Int("host_count", len(hostIDs)).
		Int("item_count", len(items)).
		Msg("Fetched items from zabbix")

	return samples, nil
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	rpcReq := rpcRequest{
		JSONRPC: jsonRPCVersion,
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	if c.legacyAuth {
		rpcReq.Auth = c.token
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}

	req.Header.Set("Content-Type", "application/json-rpc")

	if c.token != "" && !c.legacyAuth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return fmt.Errorf("%w: %d %s", errUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("%w: %s (%d): %s", ErrAPI, rpcResp.Error.Message, rpcResp.Error.Code, rpcResp.Error.Data)
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}

	return nil
}
