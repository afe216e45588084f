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

// Package app wires configuration, sample sources and HTTP servers into the
// hostmetrics commands.
package app

import (
	"context"
	"time"

	"github.com/carverauto/hostmetrics/pkg/api"
	"github.com/carverauto/hostmetrics/pkg/config"
	"github.com/carverauto/hostmetrics/pkg/hostmetrics"
	srHttp "github.com/carverauto/hostmetrics/pkg/http"
	"github.com/carverauto/hostmetrics/pkg/lifecycle"
	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
	"github.com/carverauto/hostmetrics/pkg/proxy"
	"github.com/carverauto/hostmetrics/pkg/version"
)

const serviceName = "hostmetrics"

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// LoadConfig reads and validates the service configuration.
func LoadConfig(ctx context.Context, path string) (*models.Config, error) {
	var cfg models.Config

	cfgLoader := config.NewConfig(logger.NewZerologAdapter(logger.WithComponent("config")))

	if err := cfgLoader.LoadAndValidate(ctx, path, &cfg); err != nil {
		return nil, err
	}

	if cfg.Logging == nil {
		cfg.Logging = logger.DefaultConfig()
	}

	return &cfg, nil
}

// Run serves the aggregator API and, when configured, the augmenting proxy
// until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	if err := lifecycle.InitializeLogger(cfg.Logging); err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger("hostmetrics-main", cfg.Logging)
	if err != nil {
		return err
	}

	tp, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		Logger:         mainLogger,
		OTel:           &cfg.Logging.OTel,
	})
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tp.Shutdown(shutdownCtx); err != nil {
			mainLogger.Error().Err(err).Msg("Error shutting down tracer provider")
		}
	}()

	source, closeSource, err := NewSampleSource(ctx, cfg.Source, mainLogger)
	if err != nil {
		return err
	}
	defer closeSource()

	servers, err := buildServers(cfg, hostmetrics.NewAggregator(source, mainLogger))
	if err != nil {
		return err
	}

	mainLogger.Info().Str("version", version.GetFullVersion()).Int("servers", len(servers)).Msg("Starting hostmetrics")

	return lifecycle.RunHTTPServers(ctx, mainLogger, servers...)
}

func buildServers(cfg *models.Config, agg *hostmetrics.Aggregator) ([]lifecycle.HTTPServer, error) {
	apiLogger, err := lifecycle.CreateComponentLogger("api", cfg.Logging)
	if err != nil {
		return nil, err
	}

	metrics := srHttp.NewMetrics(serviceName)

	apiServer := api.NewAPIServer(cfg.CORS,
		api.WithAggregator(agg),
		api.WithLogger(apiLogger),
		api.WithAPIKey(cfg.APIKey),
		api.WithRateLimit(cfg.RateLimit),
		api.WithMetrics(metrics),
	)

	servers := []lifecycle.HTTPServer{{Name: "api", Addr: cfg.ListenAddr, Handler: apiServer}}

	if cfg.Proxy.ListenAddr == "" {
		return servers, nil
	}

	proxyLogger, err := lifecycle.CreateComponentLogger("proxy", cfg.Logging)
	if err != nil {
		return nil, err
	}

	fetcher, err := NewFetcher(cfg.Overlay, agg)
	if err != nil {
		return nil, err
	}

	p, err := proxy.New(cfg.Proxy, cfg.Overlay, fetcher,
		proxy.WithLogger(proxyLogger),
		proxy.WithMetrics(metrics.Registerer()),
	)
	if err != nil {
		return nil, err
	}

	return append(servers, lifecycle.HTTPServer{Name: "proxy", Addr: cfg.Proxy.ListenAddr, Handler: p}), nil
}
