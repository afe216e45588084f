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

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

// latestHostSamplesQuery returns the newest value per (hostid, key_) for monitored hosts.
// host_latest_samples(hostid text, key_ text, value double precision, units text,
// monitored boolean, clock timestamptz).
const latestHostSamplesQuery = `
SELECT DISTINCT ON (hostid, key_) hostid, key_, value, units
FROM host_latest_samples
WHERE monitored
  AND hostid = ANY($1)
  AND key_ = ANY($2)
ORDER BY hostid, key_, clock DESC`

// HostSampleStore implements hostmetrics.SampleSource over CNPG.
type HostSampleStore struct {
	conn Querier
	log  logger.Logger
}

func NewHostSampleStore(conn Querier, log logger.Logger) *HostSampleStore {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &HostSampleStore{conn: conn, log: log}
}

// LatestSamples fetches the last value of each key on each host.
func (s *HostSampleStore) LatestSamples(
	ctx context.Context, hostIDs []models.HostID, keys []models.MetricKey) ([]models.RawSample, error) {
	if s.conn == nil {
		return nil, errNilQuerier
	}

	if len(hostIDs) == 0 || len(keys) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hostIDs))
	for i, id := range hostIDs {
		ids[i] = string(id)
	}

	keyNames := make([]string, len(keys))
	for i, k := range keys {
		keyNames[i] = string(k)
	}

	rows, err := s.conn.Query(ctx, latestHostSamplesQuery, ids, keyNames)
	if err != nil {
		return nil, fmt.Errorf("cnpg: latest host samples: %w", err)
	}
	defer rows.Close()

	samples := make([]models.RawSample, 0, len(ids)*len(keyNames))

	for rows.Next() {
		sample, err := scanHostSample(rows)
		if err != nil {
			s.log.Warn().Err(err).Msg("Skipping unreadable host sample row")
			continue
		}

		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cnpg: iterate host samples: %w", err)
	}

	return samples, nil
}

func scanHostSample(row rowScanner) (models.RawSample, error) {
	var (
		hostID string
		key    string
		value  float64
		units  sql.NullString
	)

	if err := row.Scan(&hostID, &key, &value, &units); err != nil {
		return models.RawSample{}, err
	}

	return models.RawSample{
		HostID:    models.HostID(hostID),
		MetricKey: models.MetricKey(key),
		Value:     strconv.FormatFloat(value, 'f', -1, 64),
		Unit:      units.String,
	}, nil
}
