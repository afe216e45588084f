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

// Package overlay augments a server-rendered host table with metric columns.
package overlay

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/carverauto/hostmetrics/pkg/dom"
	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

// State is the lifecycle of one watched table.
type State int32

const (
	StateIdle State = iota
	StateDetecting
	StateInjecting
	StateInjected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDetecting:
		return "detecting"
	case StateInjecting:
		return "injecting"
	case StateInjected:
		return "injected"
	default:
		return "unknown"
	}
}

// Controller owns the injected columns of one host table inside a Document.
type Controller struct {
	doc      *dom.Document
	fetcher  MetricsFetcher
	opts     *options
	log      logger.Logger
	tracer   trace.Tracer
	state    atomic.Int32
	inFlight atomic.Bool
}

func NewController(doc *dom.Document, fetcher MetricsFetcher, cfg models.OverlayConfig, log logger.Logger) (*Controller, error) {
	opts, err := resolveOptions(cfg)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Controller{
		doc:     doc,
		fetcher: fetcher,
		opts:    opts,
		log:     log,
		tracer:  logger.GetTracer("overlay"),
	}, nil
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		c.log.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("Overlay state change")
	}
}

// Detect reports whether the table is present with at least one body row.
func (c *Controller) Detect() bool {
	found := false

	_ = c.doc.Update(func(root *html.Node) error {
		table := dom.Find(root, c.opts.table)
		found = table != nil && dom.Find(table, c.opts.bodyRows) != nil

		return nil
	})

	return found
}

// Inject runs one injection pass. A fetch failure still completes the pass with
// placeholders. Concurrent calls return ErrPassInFlight without side effects.
func (c *Controller) Inject(ctx context.Context) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrPassInFlight
	}
	defer c.inFlight.Store(false)

	c.setState(StateInjecting)

	ctx, span := c.tracer.Start(ctx, "overlay.Inject")
	defer span.End()

	var (
		bindings []rowBinding
		already  bool
	)

	err := c.doc.Update(func(root *html.Node) error {
		table := dom.Find(root, c.opts.table)
		if table == nil {
			return errTableMissing
		}

		if dom.Find(table, c.opts.headerMarker) != nil {
			already = true
			return nil
		}

		if !c.injectHeaders(table) {
			c.log.Debug().Str("anchor", c.opts.anchorHeader).Msg("Anchor header not found, skipping header injection")
		}

		bindings = c.bindRows(table)

		return nil
	})
	if err != nil {
		c.setState(StateDetecting)
		return err
	}

	if already {
		c.setState(StateInjected)
		return nil
	}

	ids := uniqueHostIDs(bindings)
	span.SetAttributes(attribute.Int("overlay.rows", len(bindings)), attribute.Int("overlay.hosts", len(ids)))

	if len(ids) > 0 {
		records := c.fetch(ctx, ids)

		_ = c.doc.Update(func(root *html.Node) error {
			for _, b := range bindings {
				if !dom.Attached(root, b.row) {
					continue
				}

				c.injectRow(b, records[b.hostID])
			}

			return nil
		})
	}

	c.setState(StateInjected)

	return nil
}

func (c *Controller) fetch(ctx context.Context, ids []models.HostID) map[models.HostID]models.HostMetricRecord {
	if c.fetcher == nil {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.requestTimeout)
	defer cancel()

	records, err := c.fetcher.FetchMetrics(fetchCtx, ids)
	if err != nil {
		c.log.Warn().Err(err).Int("host_count", len(ids)).Msg("Metrics fetch failed, rendering placeholders")
		return nil
	}

	return records
}

// RunOnce injects if the table is present and reports whether it was.
func (c *Controller) RunOnce(ctx context.Context) (bool, error) {
	c.setState(StateDetecting)

	if !c.Detect() {
		return false, nil
	}

	if err := c.Inject(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// Run detects, injects and then re-applies the overlay whenever the container or
// the table is replaced. It is meant for documents that outlive one pass; it
// returns when ctx ends.
func (c *Controller) Run(ctx context.Context) error {
	defer c.setState(StateIdle)

	for {
		c.setState(StateDetecting)

		if err := c.waitForTable(ctx); err != nil {
			return err
		}

		observers := c.replacementObservers()

		if err := c.Inject(ctx); err != nil && !errors.Is(err, ErrPassInFlight) {
			c.log.Debug().Err(err).Msg("Injection pass aborted")
		}

		if err := c.awaitReplacement(ctx, observers); err != nil {
			return err
		}
	}
}

func (c *Controller) waitForTable(ctx context.Context) error {
	if c.Detect() {
		return nil
	}

	ticker := time.NewTicker(c.opts.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if c.Detect() {
				return nil
			}
		}
	}
}

// replacementObservers watches the container's parent and the table's parent so
// that swapping either the container or just the table triggers re-detection.
func (c *Controller) replacementObservers() []*dom.Observer {
	var targets []*html.Node

	_ = c.doc.Update(func(root *html.Node) error {
		if container := dom.Find(root, c.opts.container); container != nil && container.Parent != nil {
			targets = append(targets, container.Parent)
		}

		if table := dom.Find(root, c.opts.table); table != nil && table.Parent != nil {
			if len(targets) == 0 || targets[0] != table.Parent {
				targets = append(targets, table.Parent)
			}
		}

		return nil
	})

	observers := make([]*dom.Observer, 0, len(targets))
	for _, target := range targets {
		observers = append(observers, c.doc.Observe(target))
	}

	return observers
}

func (c *Controller) awaitReplacement(ctx context.Context, observers []*dom.Observer) error {
	if len(observers) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	defer func() {
		for _, obs := range observers {
			obs.Disconnect()
		}
	}()

	var firstEvents, secondEvents <-chan dom.Mutation

	firstEvents = observers[0].Events()
	if len(observers) > 1 {
		secondEvents = observers[1].Events()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-firstEvents:
	case <-secondEvents:
	}

	c.log.Debug().Dur("settle", c.opts.settleDelay).Msg("Host table replaced, re-detecting")

	timer := time.NewTimer(c.opts.settleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
