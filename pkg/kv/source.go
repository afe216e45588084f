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

package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

const maxConcurrentGets = 8

// SampleSource implements hostmetrics.SampleSource over snapshots in a Store.
type SampleSource struct {
	store Store
	log   logger.Logger
}

func NewSampleSource(store Store, log logger.Logger) *SampleSource {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &SampleSource{store: store, log: log}
}

// LatestSamples reads one snapshot per host. Missing keys, unmonitored hosts and
// undecodable snapshots contribute no samples. Output follows the request order.
func (s *SampleSource) LatestSamples(
	ctx context.Context, hostIDs []models.HostID, keys []models.MetricKey) ([]models.RawSample, error) {
	if len(hostIDs) == 0 || len(keys) == 0 {
		return nil, nil
	}

	wanted := make(map[models.MetricKey]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	perHost := make([][]models.RawSample, len(hostIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentGets)

	for i, id := range hostIDs {
		g.Go(func() error {
			samples, err := s.hostSamples(gctx, id, wanted)
			if err != nil {
				return err
			}

			perHost[i] = samples

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.RawSample
	for _, samples := range perHost {
		out = append(out, samples...)
	}

	return out, nil
}

func (s *SampleSource) hostSamples(
	ctx context.Context, id models.HostID, wanted map[models.MetricKey]struct{}) ([]models.RawSample, error) {
	raw, found, err := s.store.Get(ctx, HostKey(id))
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.log.Warn().Err(err).Str("host_id", string(id)).Msg("Ignoring undecodable host snapshot")

		return nil, nil
	}

	if !snap.Monitored {
		return nil, nil
	}

	samples := make([]models.RawSample, 0, len(snap.Samples))

	for _, sample := range snap.Samples {
		if _, ok := wanted[sample.Key]; !ok {
			continue
		}

		samples = append(samples, models.RawSample{
			HostID:    id,
			MetricKey: sample.Key,
			Value:     sample.Value,
			Unit:      sample.Units,
		})
	}

	return samples, nil
}

// PublishSnapshot stores samples for one host as a monitored snapshot.
func PublishSnapshot(ctx context.Context, store Store, id models.HostID, samples []models.RawSample, now time.Time) error {
	snap := Snapshot{
		Monitored: true,
		Samples:   make([]SnapshotSample, 0, len(samples)),
		UpdatedAt: now.UTC(),
	}

	for _, sample := range samples {
		snap.Samples = append(snap.Samples, SnapshotSample{
			Key:   sample.MetricKey,
			Value: sample.Value,
			Units: sample.Unit,
		})
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for host %s: %w", id, err)
	}

	return store.Put(ctx, HostKey(id), payload)
}
