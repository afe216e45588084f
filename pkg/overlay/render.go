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
	"strconv"

	"golang.org/x/net/html"

	"github.com/carverauto/hostmetrics/pkg/dom"
	"github.com/carverauto/hostmetrics/pkg/models"
)

const (
	HeaderClass = "host-metrics-col"
	CellClass   = "host-metrics-cell"
	ValueClass  = "host-metric-value"

	ClassCritical = "metric-critical"
	ClassWarning  = "metric-warning"
	ClassOK       = "metric-ok"

	criticalAbove = 80
	warningAbove  = 60

	placeholderText  = "—"
	placeholderStyle = "color: #999"
)

type column struct {
	label  string
	render func(models.HostMetricRecord) *html.Node
}

// columns are inserted in this order before the anchor column.
var columns = []column{
	{label: "CPU Util %", render: func(r models.HostMetricRecord) *html.Node { return percentCell(r.CPUUtilPercent) }},
	{label: "CPU Cores", render: func(r models.HostMetricRecord) *html.Node { return coresCell(r.CPUCores) }},
	{label: "Memory Util %", render: func(r models.HostMetricRecord) *html.Node { return percentCell(r.MemUtilPercent) }},
	{label: "Memory Available", render: func(r models.HostMetricRecord) *html.Node { return sizeCell(r.MemAvailable) }},
	{label: "Memory Total", render: func(r models.HostMetricRecord) *html.Node { return sizeCell(r.MemTotal) }},
	{label: "Disk Used %", render: func(r models.HostMetricRecord) *html.Node { return percentCell(r.DiskUsedPercent) }},
}

// ColumnLabels returns the injected header labels in display order.
func ColumnLabels() []string {
	labels := make([]string, len(columns))
	for i, c := range columns {
		labels[i] = c.label
	}

	return labels
}

// Classify maps a percentage to its severity class.
func Classify(v float64) string {
	switch {
	case v > criticalAbove:
		return ClassCritical
	case v > warningAbove:
		return ClassWarning
	default:
		return ClassOK
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func newCell() *html.Node {
	return dom.NewElement("td", html.Attribute{Key: "class", Val: CellClass})
}

func valueCell(text string, classes ...string) *html.Node {
	span := dom.NewElement("span", html.Attribute{Key: "class", Val: ValueClass})
	dom.AddClass(span, classes...)
	span.AppendChild(dom.NewText(text))

	td := newCell()
	td.AppendChild(span)

	return td
}

func placeholderCell() *html.Node {
	td := newCell()
	td.Attr = append(td.Attr, html.Attribute{Key: "style", Val: placeholderStyle})
	td.AppendChild(dom.NewText(placeholderText))

	return td
}

func percentCell(v *float64) *html.Node {
	if v == nil {
		return placeholderCell()
	}

	return valueCell(formatNumber(*v)+"%", Classify(*v))
}

func coresCell(v *int) *html.Node {
	if v == nil {
		return placeholderCell()
	}

	return valueCell(strconv.Itoa(*v))
}

func sizeCell(v *string) *html.Node {
	if v == nil || *v == "" {
		return placeholderCell()
	}

	return valueCell(*v)
}

func headerCell(label string) *html.Node {
	th := dom.NewElement("th", html.Attribute{Key: "class", Val: HeaderClass})
	th.AppendChild(dom.NewText(label))

	return th
}
