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

package overlay

import (
	"time"

	"github.com/andybalholm/cascadia"

	"github.com/carverauto/hostmetrics/pkg/dom"
	"github.com/carverauto/hostmetrics/pkg/models"
)

const (
	DefaultPollInterval      = 100 * time.Millisecond
	DefaultSettleDelay       = 300 * time.Millisecond
	DefaultRequestTimeout    = 10 * time.Second
	DefaultContainerSelector = `form[name="host_view"]`
	DefaultTableSelector     = `form[name="host_view"] table.list-table`
	DefaultAnchorHeader      = "Tags"
	DefaultTagCellSelector   = `.tag-list, [class*="tag"]`
	DefaultHostLinkSelector  = `a[data-menu-popup]`
	DefaultHostLinkAttribute = "data-menu-popup"
)

// DefaultTagCellTexts identifies an empty tag cell by its text.
var DefaultTagCellTexts = []string{"No tags"}

type options struct {
	pollInterval   time.Duration
	settleDelay    time.Duration
	requestTimeout time.Duration
	anchorHeader   string
	tagCellTexts   []string
	linkAttribute  string

	container cascadia.Selector
	table     cascadia.Selector
	tagCell   cascadia.Selector
	hostLink  cascadia.Selector

	bodyRows     cascadia.Selector
	headerRow    cascadia.Selector
	headerCells  cascadia.Selector
	headerMarker cascadia.Selector
	cellMarker   cascadia.Selector
	rowCells     cascadia.Selector
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}

	return v
}

func resolveOptions(cfg models.OverlayConfig) (*options, error) {
	o := &options{
		pollInterval:   orDefault(time.Duration(cfg.PollInterval), DefaultPollInterval),
		settleDelay:    orDefault(time.Duration(cfg.SettleDelay), DefaultSettleDelay),
		requestTimeout: orDefault(time.Duration(cfg.RequestTimeout), DefaultRequestTimeout),
		anchorHeader:   orDefault(cfg.AnchorHeader, DefaultAnchorHeader),
		tagCellTexts:   cfg.TagCellTexts,
		linkAttribute:  orDefault(cfg.HostLinkAttribute, DefaultHostLinkAttribute),
		bodyRows:       dom.MustCompile("tbody tr"),
		headerRow:      dom.MustCompile("thead tr"),
		headerCells:    dom.MustCompile("th"),
		headerMarker:   dom.MustCompile("thead th." + HeaderClass),
		cellMarker:     dom.MustCompile("." + CellClass),
		rowCells:       dom.MustCompile("td"),
	}

	if len(o.tagCellTexts) == 0 {
		o.tagCellTexts = DefaultTagCellTexts
	}

	selectors := []struct {
		dst *cascadia.Selector
		src string
	}{
		{&o.container, orDefault(cfg.ContainerSelector, DefaultContainerSelector)},
		{&o.table, orDefault(cfg.TableSelector, DefaultTableSelector)},
		{&o.tagCell, orDefault(cfg.TagCellSelector, DefaultTagCellSelector)},
		{&o.hostLink, orDefault(cfg.HostLinkSelector, DefaultHostLinkSelector)},
	}

	for _, s := range selectors {
		sel, err := dom.Compile(s.src)
		if err != nil {
			return nil, err
		}

		*s.dst = sel
	}

	return o, nil
}
