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

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	srHttp "github.com/carverauto/hostmetrics/pkg/http"
	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

var errBackend = errors.New("telemetry backend query failed: connection refused")

func ptr[T any](v T) *T {
	return &v
}

func newTestServer(t *testing.T, agg MetricAggregator, opts ...func(*APIServer)) *APIServer {
	t.Helper()

	opts = append([]func(*APIServer){WithAggregator(agg), WithLogger(logger.NewTestLogger())}, opts...)

	return NewAPIServer(models.CORSConfig{AllowedOrigins: []string{"http://zabbix.local"}}, opts...)
}

func post(t *testing.T, s http.Handler, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, MetricsPath, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	return rr
}

func TestHostMetricsJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	agg := NewMockMetricAggregator(ctrl)

	agg.EXPECT().
		GetMetrics(gomock.Any(), []models.HostID{"1", "2"}).
		Return(map[models.HostID]models.HostMetricRecord{
			"1": {CPUUtilPercent: ptr(45.2), MemUtilPercent: ptr(55.0)},
		}, nil)

	rr := post(t, newTestServer(t, agg), "application/json", `{"hostids":["1",2]}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"metrics":{"1":{"cpu_util":45.2,"memory_util":55}}}`, rr.Body.String())
}

func TestHostMetricsForm(t *testing.T) {
	ctrl := gomock.NewController(t)
	agg := NewMockMetricAggregator(ctrl)

	agg.EXPECT().
		GetMetrics(gomock.Any(), []models.HostID{"10084", "10085", "10086"}).
		Return(map[models.HostID]models.HostMetricRecord{}, nil)

	form := url.Values{}
	form.Set("hostids[1]", "10085")
	form.Set("hostids[0]", "10084")
	form.Set("hostids[2]", "10086")

	rr := post(t, newTestServer(t, agg), "application/x-www-form-urlencoded", form.Encode())

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"metrics":{}}`, rr.Body.String())
}

func TestHostMetricsBackendErrorIsBodyLevel(t *testing.T) {
	ctrl := gomock.NewController(t)
	agg := NewMockMetricAggregator(ctrl)

	agg.EXPECT().GetMetrics(gomock.Any(), gomock.Any()).Return(nil, errBackend)

	rr := post(t, newTestServer(t, agg), "application/json", `{"hostids":["1"]}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"error":"telemetry backend query failed: connection refused"}`, rr.Body.String())
}

func TestHostMetricsMalformedInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	agg := NewMockMetricAggregator(ctrl)

	s := newTestServer(t, agg)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "broken json", contentType: "application/json", body: `{"hostids":`},
		{name: "object ids", contentType: "application/json", body: `{"hostids":[{"id":1}]}`},
		{name: "scalar ids", contentType: "application/json", body: `{"hostids":"1"}`},
		{name: "bad form index", contentType: "application/x-www-form-urlencoded", body: "hostids[x]=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := post(t, s, tt.contentType, tt.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), `"error"`)
			assert.NotContains(t, rr.Body.String(), `"metrics"`)
		})
	}
}

func TestHostMetricsEmptyBodyReachesAggregator(t *testing.T) {
	ctrl := gomock.NewController(t)
	agg := NewMockMetricAggregator(ctrl)

	agg.EXPECT().GetMetrics(gomock.Any(), gomock.Len(0)).Return(map[models.HostID]models.HostMetricRecord{}, nil)

	rr := post(t, newTestServer(t, agg), "application/json", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"metrics":{}}`, rr.Body.String())
}

func TestHostMetricsRequiresAPIKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	agg := NewMockMetricAggregator(ctrl)

	agg.EXPECT().GetMetrics(gomock.Any(), gomock.Any()).Return(map[models.HostID]models.HostMetricRecord{}, nil)

	s := newTestServer(t, agg, WithAPIKey("k"))

	rr := post(t, s, "application/json", `{"hostids":["1"]}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodPost, MetricsPath, strings.NewReader(`{"hostids":["1"]}`))
	req.Header.Set("X-API-Key", "k")

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newTestServer(t, NewMockMetricAggregator(ctrl), WithMetrics(srHttp.NewMetrics("hostmetrics")))

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `hostmetrics_http_requests_total{code="200",method="GET",route="/healthz"} 1`)
}

func TestPreflightSkipsAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newTestServer(t, NewMockMetricAggregator(ctrl), WithAPIKey("k"))

	req := httptest.NewRequest(http.MethodOptions, MetricsPath, http.NoBody)
	req.Header.Set("Origin", "http://zabbix.local")

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://zabbix.local", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithoutAggregator(t *testing.T) {
	s := NewAPIServer(models.CORSConfig{})

	rr := post(t, s, "application/json", `{"hostids":["1"]}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), errNoAggregator.Error())
}
