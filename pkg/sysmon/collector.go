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

// Package sysmon reports the machine the service runs on as a single host.
package sysmon

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

const (
	defaultSampleInterval = 250 * time.Millisecond
	defaultMountPoint     = "/"
)

var (
	errMissingHostID = errors.New("local source needs a host id")
	errNoCPUUsage    = errors.New("cpu usage collector returned no values")
)

// Source implements hostmetrics.SampleSource for the local machine.
type Source struct {
	log            logger.Logger
	hostID         models.HostID
	mountPoint     string
	sampleInterval time.Duration
	usageCollector func(context.Context, time.Duration, bool) ([]float64, error)
	countCollector func(context.Context, bool) (int, error)
	memCollector   func(context.Context) (*mem.VirtualMemoryStat, error)
	diskCollector  func(context.Context, string) (*disk.UsageStat, error)
}

// NewSource reports local host metrics under cfg.HostID.
func NewSource(cfg *models.LocalSourceConfig, log logger.Logger) (*Source, error) {
	if cfg == nil || cfg.HostID == "" {
		return nil, errMissingHostID
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	mount := cfg.MountPoint
	if mount == "" {
		mount = defaultMountPoint
	}

	return &Source{
		log:            log,
		hostID:         cfg.HostID,
		mountPoint:     mount,
		sampleInterval: defaultSampleInterval,
		usageCollector: cpu.PercentWithContext,
		countCollector: cpu.CountsWithContext,
		memCollector:   mem.VirtualMemoryWithContext,
		diskCollector:  disk.UsageWithContext,
	}, nil
}

func (s *Source) HostID() models.HostID {
	return s.hostID
}

// LatestSamples collects fresh values when the local host is among hostIDs.
func (s *Source) LatestSamples(
	ctx context.Context, hostIDs []models.HostID, keys []models.MetricKey) ([]models.RawSample, error) {
	requested := false

	for _, id := range hostIDs {
		if id == s.hostID {
			requested = true
			break
		}
	}

	if !requested || len(keys) == 0 {
		return nil, nil
	}

	wanted := make(map[models.MetricKey]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	all := s.Collect(ctx)
	out := make([]models.RawSample, 0, len(all))

	for _, sample := range all {
		if _, ok := wanted[sample.MetricKey]; ok {
			out = append(out, sample)
		}
	}

	return out, nil
}

// Collect samples every recognized key. A failing collector only drops its own keys.
func (s *Source) Collect(ctx context.Context) []models.RawSample {
	var samples []models.RawSample

	add := func(key models.MetricKey, v float64, unit string) {
		samples = append(samples, models.RawSample{
			HostID:    s.hostID,
			MetricKey: key,
			Value:     strconv.FormatFloat(v, 'f', -1, 64),
			Unit:      unit,
		})
	}

	if usage, err := s.cpuUsage(ctx); err != nil {
		s.log.Warn().Err(err).Msg("CPU usage collection failed")
	} else {
		add(models.MetricCPUUtil, usage, "%")
	}

	if cores, err := s.countCollector(ctx, true); err != nil {
		s.log.Warn().Err(err).Msg("CPU count collection failed")
	} else {
		add(models.MetricCPUNum, float64(cores), "")
	}

	if vm, err := s.memCollector(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Memory collection failed")
	} else if vm != nil {
		add(models.MetricMemoryUtilization, vm.UsedPercent, "%")
		add(models.MetricMemoryAvailable, float64(vm.Available), "B")
		add(models.MetricMemoryTotal, float64(vm.Total), "B")

		if vm.Total > 0 {
			add(models.MetricMemoryPAvailable, float64(vm.Available)/float64(vm.Total)*100, "%")
		}
	}

	if usage, err := s.diskCollector(ctx, s.mountPoint); err != nil {
		s.log.Warn().Err(err).Str("mount", s.mountPoint).Msg("Disk usage collection failed")
	} else if usage != nil {
		add(models.MetricFilesystemRootUsed, usage.UsedPercent, "%")
	}

	return samples
}

func (s *Source) cpuUsage(ctx context.Context) (float64, error) {
	percent, err := s.usageCollector(ctx, s.sampleInterval, false)
	if err != nil {
		return 0, err
	}

	if len(percent) == 0 {
		return 0, errNoCPUUsage
	}

	return percent[0], nil
}
