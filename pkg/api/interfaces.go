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

// Package api exposes the host metrics aggregator over HTTP.
package api

import (
	"context"

	"github.com/carverauto/hostmetrics/pkg/models"
)

//go:generate mockgen -destination=mock_aggregator.go -package=api github.com/carverauto/hostmetrics/pkg/api MetricAggregator

// MetricAggregator turns host ids into display records.
type MetricAggregator interface {
	GetMetrics(ctx context.Context, hostIDs []models.HostID) (map[models.HostID]models.HostMetricRecord, error)
}
