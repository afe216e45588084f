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
	"math"
	"strconv"
	"strings"

	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

const percentScale = 100

// hostSamples collects the parsed value of each recognized key for one host.
// The first sample seen for a key is kept.
type hostSamples map[models.MetricKey]float64

func (h hostSamples) lookup(key models.MetricKey) (float64, bool) {
	v, ok := h[key]
	return v, ok
}

// Normalize folds raw samples into one display record per host.
// Samples for hosts outside wanted (when wanted is non-nil) or with unknown keys are ignored.
func Normalize(samples []models.RawSample, wanted map[models.HostID]struct{}, log logger.Logger) map[models.HostID]models.HostMetricRecord {
	byHost := make(map[models.HostID]hostSamples)

	for _, s := range samples {
		if wanted != nil {
			if _, ok := wanted[s.HostID]; !ok {
				continue
			}
		}

		if !s.MetricKey.IsRecognized() {
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			if log != nil {
				log.Debug().
					Str("host_id", string(s.HostID)).
					Str("key", string(s.MetricKey)).
					Str("value", s.Value).
					Msg("Dropping unparsable sample")
			}

			continue
		}

		hs, ok := byHost[s.HostID]
		if !ok {
			hs = make(hostSamples)
			byHost[s.HostID] = hs
		}

		if _, seen := hs[s.MetricKey]; !seen {
			hs[s.MetricKey] = value
		}
	}

	records := make(map[models.HostID]models.HostMetricRecord, len(byHost))

	for hostID, hs := range byHost {
		records[hostID] = buildRecord(hs)
	}

	return records
}

// buildRecord applies the per-field rules once all of a host's samples are known,
// so direct memory utilization always beats the pavailable fallback.
func buildRecord(hs hostSamples) models.HostMetricRecord {
	var rec models.HostMetricRecord

	if v, ok := hs.lookup(models.MetricCPUUtil); ok {
		rec.CPUUtilPercent = ptr(round2(v))
	}

	if v, ok := hs.lookup(models.MetricCPUNum); ok {
		rec.CPUCores = ptr(int(math.Trunc(v)))
	}

	if v, ok := hs.lookup(models.MetricMemoryUtilization); ok {
		rec.MemUtilPercent = ptr(round2(v))
	} else if v, ok := hs.lookup(models.MetricMemoryPAvailable); ok {
		rec.MemUtilPercent = ptr(round2(percentScale - v))
	}

	if v, ok := hs.lookup(models.MetricMemoryAvailable); ok {
		rec.MemAvailable = ptr(FormatBytes(v))
	}

	if v, ok := hs.lookup(models.MetricMemoryTotal); ok {
		rec.MemTotal = ptr(FormatBytes(v))
	}

	if v, ok := hs.lookup(models.MetricFilesystemRootUsed); ok {
		rec.DiskUsedPercent = ptr(round2(v))
	}

	return rec
}

func ptr[T any](v T) *T {
	return &v
}
