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

// Package kv serves last-known host samples from a NATS JetStream KeyValue bucket.
package kv

import (
	"context"
	"time"

	"github.com/carverauto/hostmetrics/pkg/models"
)

// KeyPrefix namespaces host snapshots inside the bucket.
const KeyPrefix = "hosts."

// Snapshot is the JSON value stored under hosts.<hostid>.
type Snapshot struct {
	Monitored bool             `json:"monitored"`
	Samples   []SnapshotSample `json:"samples"`
	UpdatedAt time.Time        `json:"updated_at,omitempty"`
}

type SnapshotSample struct {
	Key   models.MetricKey `json:"key"`
	Value string           `json:"value"`
	Units string           `json:"units,omitempty"`
}

// Store is the key/value surface the sample source needs.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

// HostKey returns the bucket key for a host.
func HostKey(id models.HostID) string {
	return KeyPrefix + string(id)
}
