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
	"time"

	"github.com/carverauto/hostmetrics/pkg/kv"
	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

// Collector produces the current samples of one host.
type Collector interface {
	HostID() models.HostID
	Collect(ctx context.Context) []models.RawSample
}

// Publish writes a snapshot from c into store immediately and then every
// interval until ctx ends. Failed writes are logged and retried on the next tick.
func Publish(ctx context.Context, c Collector, store kv.Store, interval time.Duration, log logger.Logger) error {
	if interval <= 0 {
		return errPublishInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		publishOnce(ctx, c, store, log)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func publishOnce(ctx context.Context, c Collector, store kv.Store, log logger.Logger) {
	samples := c.Collect(ctx)

	if err := kv.PublishSnapshot(ctx, store, c.HostID(), samples, time.Now()); err != nil {
		log.Warn().Err(err).Str("host_id", string(c.HostID())).Msg("Failed to publish snapshot")
		return
	}

	log.Debug().Str("host_id", string(c.HostID())).Int("samples", len(samples)).Msg("Published snapshot")
}
