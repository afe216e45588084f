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

// Package hostmetrics turns sparse telemetry samples into per-host display records.
package hostmetrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

// Aggregator implements the metrics request/response contract on top of a SampleSource.
type Aggregator struct {
	source SampleSource
	log    logger.Logger
	tracer trace.Tracer
}

// NewAggregator creates an Aggregator reading from source.
func NewAggregator(source SampleSource, log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Aggregator{
		source: source,
		log:    log,
		tracer: logger.GetTracer("hostmetrics"),
	}
}

// GetMetrics returns one record per host that has at least one recognized sample.
// An empty id set returns an empty map without touching the backend. Any backend
// failure fails the whole request.
func (a *Aggregator) GetMetrics(ctx context.Context, hostIDs []models.HostID) (map[models.HostID]models.HostMetricRecord, error) {
	ids := models.NormalizeHostIDs(hostIDs)
	if len(ids) == 0 {
		return map[models.HostID]models.HostMetricRecord{}, nil
	}

	if a.source == nil {
		return nil, errNoSampleSource
	}

	ctx, span := a.tracer.Start(ctx, "hostmetrics.GetMetrics",
		trace.WithAttributes(attribute.Int("hostmetrics.host_count", len(ids))))
	defer span.End()

	samples, err := a.source.LatestSamples(ctx, ids, models.RecognizedMetricKeys())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend query failed")

		a.log.Error().Err(err).Int("host_count", len(ids)).Msg("Telemetry backend query failed")

		return nil, fmt.Errorf("%w: %w", ErrBackendQuery, err)
	}

	wanted := make(map[models.HostID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	records := Normalize(samples, wanted, a.log)

	span.SetAttributes(
		attribute.Int("hostmetrics.sample_count", len(samples)),
		attribute.Int("hostmetrics.record_count", len(records)),
	)

	a.log.Debug().
		Int("host_count", len(ids)).
		Int("sample_count", len(samples)).
		Int("record_count", len(records)).
		Msg("Aggregated host metrics")

	return records, nil
}

// Response wraps GetMetrics in the wire envelope; errors become the error variant.
func (a *Aggregator) Response(ctx context.Context, hostIDs []models.HostID) models.MetricsResponse {
	metrics, err := a.GetMetrics(ctx, hostIDs)
	if err != nil {
		return models.MetricsResponse{Error: err.Error()}
	}

	return models.MetricsResponse{Metrics: metrics}
}
