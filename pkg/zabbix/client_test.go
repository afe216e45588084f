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

package zabbix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/hostmetrics/pkg/models"
)

type capturedRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  itemGetParams `json:"params"`
	Auth    string        `json:"auth"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(&models.ZabbixSourceConfig{URL: srv.URL, APIToken: "secret"})
	require.NoError(t, err)

	return c
}

func TestLatestSamplesSendsExactFilter(t *testing.T) {
	t.Parallel()

	var got capturedRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json-rpc", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Empty(t, got.Auth)

		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[
			{"itemid":"1","hostid":"10084","key_":"system.cpu.util","lastvalue":"45.2","units":"%"},
			{"itemid":"2","hostid":"10084","key_":"vm.memory.size[total]","lastvalue":"8589934592","units":"B"}
		]}`))
	})

	samples, err := c.LatestSamples(context.Background(),
		[]models.HostID{"10084", "10085"}, []models.MetricKey{models.MetricCPUUtil, models.MetricMemoryTotal})
	require.NoError(t, err)

	assert.Equal(t, "item.get", got.Method)
	assert.Equal(t, "2.0", got.JSONRPC)
	assert.Equal(t, []string{"10084", "10085"}, got.Params.HostIDs)
	assert.Equal(t, []string{"system.cpu.util", "vm.memory.size[total]"}, got.Params.Filter["key_"])
	assert.True(t, got.Params.Monitored)

	require.Len(t, samples, 2)
	assert.Equal(t, models.RawSample{
		HostID:    "10084",
		MetricKey: models.MetricCPUUtil,
		Value:     "45.2",
		Unit:      "%",
	}, samples[0])
	assert.Equal(t, "8589934592", samples[1].Value)
}

func TestLatestSamplesLegacyAuth(t *testing.T) {
	t.Parallel()

	var got capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(&models.ZabbixSourceConfig{URL: srv.URL, APIToken: "secret", LegacyAuth: true})
	require.NoError(t, err)

	samples, err := c.LatestSamples(context.Background(), []models.HostID{"10084"}, models.RecognizedMetricKeys())
	require.NoError(t, err)
	assert.Empty(t, samples)
	assert.Equal(t, "secret", got.Auth)
}

func TestLatestSamplesAPIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid params.","data":"Not authorized."}}`))
	})

	_, err := c.LatestSamples(context.Background(), []models.HostID{"1"}, models.RecognizedMetricKeys())
	require.ErrorIs(t, err, ErrAPI)
	assert.Contains(t, err.Error(), "Not authorized.")
}

func TestLatestSamplesHTTPFailures(t *testing.T) {
	t.Parallel()

	t.Run("non-200", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		})

		_, err := c.LatestSamples(context.Background(), []models.HostID{"1"}, models.RecognizedMetricKeys())
		require.ErrorIs(t, err, errUnexpectedStatus)
		assert.Contains(t, err.Error(), "maintenance")
	})

	t.Run("bad json", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>login</html>"))
		})

		_, err := c.LatestSamples(context.Background(), []models.HostID{"1"}, models.RecognizedMetricKeys())
		require.Error(t, err)
	})

	t.Run("context deadline", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}

			w.WriteHeader(http.StatusOK)
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.LatestSamples(ctx, []models.HostID{"1"}, models.RecognizedMetricKeys())
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestLatestSamplesEmptyInputSkipsRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	c := newTestClient(t, func(http.ResponseWriter, *http.Request) { calls.Add(1) })

	samples, err := c.LatestSamples(context.Background(), nil, models.RecognizedMetricKeys())
	require.NoError(t, err)
	assert.Nil(t, samples)
	assert.Zero(t, calls.Load())
}

func TestNewClientRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(&models.ZabbixSourceConfig{})
	assert.ErrorIs(t, err, errMissingURL)

	_, err = NewClient(nil)
	assert.ErrorIs(t, err, errMissingURL)
}
