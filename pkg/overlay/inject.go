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
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/carverauto/hostmetrics/pkg/dom"
	"github.com/carverauto/hostmetrics/pkg/models"
)

// injectHeaders inserts the column headers before the anchor header.
// It reports false when the anchor label is not present.
func (c *Controller) injectHeaders(table *html.Node) bool {
	headerRow := dom.Find(table, c.opts.headerRow)
	if headerRow == nil {
		return false
	}

	var anchor *html.Node

	for _, th := range dom.FindAll(headerRow, c.opts.headerCells) {
		if strings.TrimSpace(dom.TextContent(th)) == c.opts.anchorHeader {
			anchor = th
			break
		}
	}

	if anchor == nil {
		return false
	}

	for _, col := range columns {
		dom.InsertBefore(anchor.Parent, headerCell(col.label), anchor)
	}

	return true
}

// bindRows resolves each body row to a host id, skipping rows without one.
func (c *Controller) bindRows(table *html.Node) []rowBinding {
	rows := dom.FindAll(table, c.opts.bodyRows)
	bindings := make([]rowBinding, 0, len(rows))

	for i, row := range rows {
		id, err := HostIDFromRow(row, c.opts.hostLink, c.opts.linkAttribute)
		if err != nil {
			c.log.Warn().Err(err).Int("row", i).Msg("Skipping row without host id")
			continue
		}

		bindings = append(bindings, rowBinding{row: row, hostID: id})
	}

	return bindings
}

func uniqueHostIDs(bindings []rowBinding) []models.HostID {
	ids := make([]models.HostID, 0, len(bindings))
	for _, b := range bindings {
		ids = append(ids, b.hostID)
	}

	return models.NormalizeHostIDs(ids)
}

// injectRow adds one cell per column before the row's tag cell.
func (c *Controller) injectRow(b rowBinding, rec models.HostMetricRecord) {
	row := b.row

	if findBelow(row, c.opts.cellMarker) != nil {
		return
	}

	cells := dom.FindAll(row, c.opts.rowCells)

	anchorIdx := -1

	for i, cell := range cells {
		if c.isTagCell(cell) {
			anchorIdx = i
		}
	}

	if anchorIdx == -1 {
		anchorIdx = len(cells) - len(columns)
	}

	if anchorIdx < 0 || anchorIdx >= len(cells) {
		c.log.Warn().
			Str("host_id", string(b.hostID)).
			Int("cells", len(cells)).
			Msg("No anchor cell for metrics, skipping row")

		return
	}

	anchor := cells[anchorIdx]
	for _, col := range columns {
		dom.InsertBefore(anchor.Parent, col.render(rec), anchor)
	}
}

func (c *Controller) isTagCell(cell *html.Node) bool {
	if findBelow(cell, c.opts.tagCell) != nil {
		return true
	}

	return slices.Contains(c.opts.tagCellTexts, strings.TrimSpace(dom.TextContent(cell)))
}
