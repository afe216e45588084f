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

package overlay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carverauto/hostmetrics/pkg/models"
)

//go:generate mockgen -destination=mock_fetcher.go -package=overlay github.com/carverauto/hostmetrics/pkg/overlay MetricsFetcher

// MetricsFetcher performs the single bulk lookup of an injection pass.
type MetricsFetcher interface {
	FetchMetrics(ctx context.Context, hostIDs []models.HostID) (map[models.HostID]models.HostMetricRecord, error)
}

// Responder is satisfied by *hostmetrics.Aggregator.
type Responder interface {
	Response(ctx context.Context, hostIDs []models.HostID) models.MetricsResponse
}

const maxResponseBytes = 8 << 20

// HTTPFetcher posts {"hostids": [...]} to the aggregator endpoint.
type HTTPFetcher struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPFetcher returns a fetcher for url. A zero timeout leaves the client unbounded.
func NewHTTPFetcher(url, apiKey string, timeout time.Duration) (*HTTPFetcher, error) {
	if url == "" {
		return nil, errMissingURL
	}

	return &HTTPFetcher{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (f *HTTPFetcher) FetchMetrics(
	ctx context.Context, hostIDs []models.HostID) (map[models.HostID]models.HostMetricRecord, error) {
	if len(hostIDs) == 0 {
		return map[models.HostID]models.HostMetricRecord{}, nil
	}

	body, err := json.Marshal(models.MetricsRequest{HostIDs: hostIDs})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if f.apiKey != "" {
		req.Header.Set("X-API-Key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metrics request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %d", errFetchStatus, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics response: %w", err)
	}

	return decodeResponse(payload)
}

// LocalFetcher serves passes from an in-process aggregator over the same wire format.
type LocalFetcher struct {
	agg Responder
}

func NewLocalFetcher(agg Responder) (*LocalFetcher, error) {
	if agg == nil {
		return nil, errNilAggregator
	}

	return &LocalFetcher{agg: agg}, nil
}

func (f *LocalFetcher) FetchMetrics(
	ctx context.Context, hostIDs []models.HostID) (map[models.HostID]models.HostMetricRecord, error) {
	if len(hostIDs) == 0 {
		return map[models.HostID]models.HostMetricRecord{}, nil
	}

	payload, err := json.Marshal(f.agg.Response(ctx, hostIDs))
	if err != nil {
		return nil, err
	}

	return decodeResponse(payload)
}

// decodeResponse treats an empty body as "no metrics".
func decodeResponse(payload []byte) (map[models.HostID]models.HostMetricRecord, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return map[models.HostID]models.HostMetricRecord{}, nil
	}

	var resp models.MetricsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode metrics response: %w", err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
	}

	if resp.Metrics == nil {
		return map[models.HostID]models.HostMetricRecord{}, nil
	}

	return resp.Metrics, nil
}
