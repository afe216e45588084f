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
	"net/http"

	"github.com/gorilla/mux"

	srHttp "github.com/carverauto/hostmetrics/pkg/http"
	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

const (
	// MetricsPath is the bulk lookup endpoint.
	MetricsPath = "/api/v1/hostmetrics"
	healthPath  = "/healthz"
	promPath    = "/metrics"

	maxRequestBodyBytes = 1 << 20
)

// APIServer routes requests to the aggregator.
type APIServer struct {
	router     *mux.Router
	aggregator MetricAggregator
	corsConfig models.CORSConfig
	rateLimit  models.RateLimitConfig
	apiKey     string
	metrics    *srHttp.Metrics
	logger     logger.Logger
}

// NewAPIServer creates a server with the given CORS policy and options.
func NewAPIServer(config models.CORSConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: config,
		logger:     logger.NewTestLogger(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

func WithAggregator(a MetricAggregator) func(server *APIServer) {
	return func(server *APIServer) {
		server.aggregator = a
	}
}

func WithLogger(log logger.Logger) func(server *APIServer) {
	return func(server *APIServer) {
		server.logger = log
	}
}

// WithAPIKey requires X-API-Key on the metrics endpoint.
func WithAPIKey(key string) func(server *APIServer) {
	return func(server *APIServer) {
		server.apiKey = key
	}
}

func WithRateLimit(cfg models.RateLimitConfig) func(server *APIServer) {
	return func(server *APIServer) {
		server.rateLimit = cfg
	}
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *srHttp.Metrics) func(server *APIServer) {
	return func(server *APIServer) {
		server.metrics = m
	}
}

func (s *APIServer) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return srHttp.CommonMiddleware(next, s.corsConfig, s.logger)
	})

	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
		s.router.Handle(promPath, s.metrics.Handler()).Methods(http.MethodGet)
	}

	s.router.HandleFunc(healthPath, s.handleHealth).Methods(http.MethodGet)

	protected := s.router.Path(MetricsPath).Subrouter()
	protected.Use(srHttp.APIKeyMiddlewareWithOptions(srHttp.APIKeyOptions{
		APIKey:          s.apiKey,
		LogUnauthorized: true,
		Logger:          s.logger,
	}))
	protected.Use(srHttp.RateLimitMiddleware(s.rateLimit, s.logger))
	protected.Methods(http.MethodPost, http.MethodOptions).HandlerFunc(s.handleHostMetrics)
}

// ServeHTTP makes APIServer an http.Handler.
func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
