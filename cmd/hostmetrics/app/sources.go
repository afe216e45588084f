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

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/carverauto/hostmetrics/pkg/db"
	"github.com/carverauto/hostmetrics/pkg/hostmetrics"
	"github.com/carverauto/hostmetrics/pkg/kv"
	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
	"github.com/carverauto/hostmetrics/pkg/overlay"
	"github.com/carverauto/hostmetrics/pkg/sysmon"
	"github.com/carverauto/hostmetrics/pkg/zabbix"
)

// NewSampleSource builds the backend named by cfg.Type. The returned func
// releases its connections and is never nil.
func NewSampleSource(ctx context.Context, cfg models.SourceConfig, log logger.Logger) (hostmetrics.SampleSource, func(), error) {
	noop := func() {}

	var source hostmetrics.SampleSource

	closeFn := noop

	switch cfg.Type {
	case models.SourceZabbix:
		client, err := zabbix.NewClient(cfg.Zabbix, zabbix.WithLogger(log))
		if err != nil {
			return nil, noop, err
		}

		source = client
	case models.SourceCNPG:
		pool, err := db.NewCNPGPool(ctx, cfg.CNPG, log)
		if err != nil {
			return nil, noop, err
		}

		source = db.NewHostSampleStore(pool, log)
		closeFn = pool.Close
	case models.SourceNATS:
		store, err := kv.NewNatsStore(ctx, cfg.NATS)
		if err != nil {
			return nil, noop, err
		}

		source = kv.NewSampleSource(store, log)
		closeFn = store.Close
	case models.SourceLocal:
		local, err := sysmon.NewSource(cfg.Local, log)
		if err != nil {
			return nil, noop, err
		}

		source = local
	default:
		return nil, noop, fmt.Errorf("%w: %q", errUnknownSource, cfg.Type)
	}

	log.Info().Str("source", string(cfg.Type)).Msg("Sample source ready")

	return hostmetrics.WithTimeout(source, time.Duration(cfg.Timeout)), closeFn, nil
}

// NewFetcher talks to a remote aggregator when one is configured and to agg otherwise.
func NewFetcher(cfg models.OverlayConfig, agg overlay.Responder) (overlay.MetricsFetcher, error) {
	if cfg.AggregatorURL != "" {
		timeout := time.Duration(cfg.RequestTimeout)
		if timeout <= 0 {
			timeout = overlay.DefaultRequestTimeout
		}

		return overlay.NewHTTPFetcher(cfg.AggregatorURL, cfg.AggregatorAPIKey, timeout)
	}

	return overlay.NewLocalFetcher(agg)
}
