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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

var errStoreDown = errors.New("nats: no responders available")

type memoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string][]byte)}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, false, m.getErr
	}

	v, ok := m.values[key]

	return v, ok, nil
}

func (m *memoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value

	return nil
}

func (m *memoryStore) putJSON(t *testing.T, key string, v interface{}) {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, m.Put(context.Background(), key, b))
}

func TestLatestSamplesReadsSnapshots(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.putJSON(t, "hosts.1", Snapshot{
		Monitored: true,
		Samples: []SnapshotSample{
			{Key: models.MetricCPUUtil, Value: "45.2", Units: "%"},
			{Key: "net.if.in[eth0]", Value: "1000"},
			{Key: models.MetricMemoryUtilization, Value: "55"},
		},
	})
	store.putJSON(t, "hosts.2", Snapshot{
		Monitored: false,
		Samples:   []SnapshotSample{{Key: models.MetricCPUUtil, Value: "99"}},
	})
	store.values["hosts.3"] = []byte("{not json")

	src := NewSampleSource(store, logger.NewTestLogger())

	samples, err := src.LatestSamples(context.Background(),
		[]models.HostID{"1", "2", "3", "4"}, models.RecognizedMetricKeys())
	require.NoError(t, err)

	assert.Equal(t, []models.RawSample{
		{HostID: "1", MetricKey: models.MetricCPUUtil, Value: "45.2", Unit: "%"},
		{HostID: "1", MetricKey: models.MetricMemoryUtilization, Value: "55"},
	}, samples)
}

func TestLatestSamplesStoreError(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.getErr = errStoreDown

	_, err := NewSampleSource(store, nil).LatestSamples(context.Background(),
		[]models.HostID{"1"}, models.RecognizedMetricKeys())
	assert.ErrorIs(t, err, errStoreDown)
}

func TestPublishSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	err := PublishSnapshot(context.Background(), store, "10084", []models.RawSample{
		{HostID: "10084", MetricKey: models.MetricCPUNum, Value: "8"},
		{HostID: "10084", MetricKey: models.MetricFilesystemRootUsed, Value: "71.5", Unit: "%"},
	}, now)
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(store.values["hosts.10084"], &snap))
	assert.True(t, snap.Monitored)
	assert.Equal(t, now, snap.UpdatedAt)
	require.Len(t, snap.Samples, 2)

	samples, err := NewSampleSource(store, nil).LatestSamples(context.Background(),
		[]models.HostID{"10084"}, []models.MetricKey{models.MetricFilesystemRootUsed})
	require.NoError(t, err)
	assert.Equal(t, []models.RawSample{
		{HostID: "10084", MetricKey: models.MetricFilesystemRootUsed, Value: "71.5", Unit: "%"},
	}, samples)
}

func TestNewNatsStoreValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := NewNatsStore(context.Background(), &models.NATSSourceConfig{Bucket: "hostmetrics"})
	assert.ErrorIs(t, err, errMissingURL)

	_, err = NewNatsStore(context.Background(), &models.NATSSourceConfig{URL: "nats://127.0.0.1:4222"})
	assert.ErrorIs(t, err, errMissingBucket)
}
