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
	"time"

	"github.com/carverauto/hostmetrics/pkg/models"
)

type timeoutSource struct {
	next    SampleSource
	timeout time.Duration
}

// WithTimeout bounds every lookup on source by d. A non-positive d returns source unchanged.
func WithTimeout(source SampleSource, d time.Duration) SampleSource {
	if d <= 0 || source == nil {
		return source
	}

	return &timeoutSource{next: source, timeout: d}
}

func (t *timeoutSource) LatestSamples(
	ctx context.Context, hostIDs []models.HostID, keys []models.MetricKey) ([]models.RawSample, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return t.next.LatestSamples(ctx, hostIDs, keys)
}
