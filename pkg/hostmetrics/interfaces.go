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

package hostmetrics

import (
	"context"

	"github.com/carverauto/hostmetrics/pkg/models"
)

//go:generate mockgen -destination=mock_source.go -package=hostmetrics github.com/carverauto/hostmetrics/pkg/hostmetrics SampleSource

// SampleSource returns the last known samples for the given hosts and keys.
// Hosts that are unknown or not monitored contribute no samples and are not an error.
type SampleSource interface {
	LatestSamples(ctx context.Context, hostIDs []models.HostID, keys []models.MetricKey) ([]models.RawSample, error)
}
