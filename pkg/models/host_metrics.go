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

// Package models pkg/models/host_metrics.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// HostID is the opaque identifier the monitoring frontend assigns to a host.
type HostID string

// MetricKey names a telemetry item on a host.
type MetricKey string

const (
	MetricCPUUtil            MetricKey = "system.cpu.util"
	MetricCPUNum             MetricKey = "system.cpu.num"
	MetricMemoryUtilization  MetricKey = "vm.memory.utilization"
	MetricMemoryPAvailable   MetricKey = "vm.memory.size[pavailable]"
	MetricMemoryAvailable    MetricKey = "vm.memory.size[available]"
	MetricMemoryTotal        MetricKey = "vm.memory.size[total]"
	MetricFilesystemRootUsed MetricKey = "vfs.fs.size[/,pused]"
)

// RecognizedMetricKeys returns the seven keys the aggregator asks backends for.
func RecognizedMetricKeys() []MetricKey {
	return []MetricKey{
		MetricCPUUtil,
		MetricCPUNum,
		MetricMemoryUtilization,
		MetricMemoryPAvailable,
		MetricMemoryAvailable,
		MetricMemoryTotal,
		MetricFilesystemRootUsed,
	}
}

// IsRecognized reports whether k is one of RecognizedMetricKeys.
func (k MetricKey) IsRecognized() bool {
	for _, known := range RecognizedMetricKeys() {
		if k == known {
			return true
		}
	}

	return false
}

// RawSample is the last known value of one metric on one host.
type RawSample struct {
	HostID    HostID    `json:"hostid"`
	MetricKey MetricKey `json:"key"`
	Value     string    `json:"value"`
	Unit      string    `json:"units,omitempty"`
}

// HostMetricRecord is the per-host display record. A nil field means no sample was available.
type HostMetricRecord struct {
	CPUUtilPercent  *float64 `json:"cpu_util,omitempty"`
	CPUCores        *int     `json:"cpu_cores,omitempty"`
	MemUtilPercent  *float64 `json:"memory_util,omitempty"`
	MemAvailable    *string  `json:"memory_available,omitempty"`
	MemTotal        *string  `json:"memory_total,omitempty"`
	DiskUsedPercent *float64 `json:"disk,omitempty"`
}

// IsEmpty reports whether every field is absent.
func (r HostMetricRecord) IsEmpty() bool {
	return r.CPUUtilPercent == nil && r.CPUCores == nil && r.MemUtilPercent == nil &&
		r.MemAvailable == nil && r.MemTotal == nil && r.DiskUsedPercent == nil
}

// HostIDs decodes a JSON array whose elements may be strings or numbers.
type HostIDs []HostID

func (h *HostIDs) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw []interface{}
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHostIDs, err)
	}

	ids := make(HostIDs, 0, len(raw))

	for _, item := range raw {
		switch v := item.(type) {
		case string:
			ids = append(ids, HostID(v))
		case json.Number:
			ids = append(ids, HostID(v.String()))
		default:
			return fmt.Errorf("%w: unsupported element %v", ErrInvalidHostIDs, item)
		}
	}

	*h = ids

	return nil
}

// NormalizeHostIDs trims, drops blanks and deduplicates while preserving order.
func NormalizeHostIDs(ids []HostID) []HostID {
	seen := make(map[HostID]struct{}, len(ids))
	out := make([]HostID, 0, len(ids))

	for _, id := range ids {
		id = HostID(strings.TrimSpace(string(id)))
		if id == "" {
			continue
		}

		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

// HostIDFromJSON converts a decoded JSON scalar (string or number) into a HostID.
func HostIDFromJSON(v interface{}) (HostID, bool) {
	switch id := v.(type) {
	case string:
		if strings.TrimSpace(id) == "" {
			return "", false
		}

		return HostID(strings.TrimSpace(id)), true
	case json.Number:
		return HostID(id.String()), true
	case float64:
		return HostID(strconv.FormatFloat(id, 'f', -1, 64)), true
	default:
		return "", false
	}
}

// MetricsRequest is the body posted to the aggregator endpoint.
type MetricsRequest struct {
	HostIDs HostIDs `json:"hostids"`
}

// MetricsResponse carries either Metrics or Error, never both.
type MetricsResponse struct {
	Metrics map[HostID]HostMetricRecord `json:"metrics,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// MarshalJSON keeps "metrics" present (possibly empty) on the success variant.
func (r MetricsResponse) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: r.Error})
	}

	metrics := r.Metrics
	if metrics == nil {
		metrics = map[HostID]HostMetricRecord{}
	}

	return json.Marshal(struct {
		Metrics map[HostID]HostMetricRecord `json:"metrics"`
	}{Metrics: metrics})
}
