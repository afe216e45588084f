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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/net/html"

	"github.com/carverauto/hostmetrics/pkg/dom"
	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
)

var errAggregatorDown = errors.New("connection refused")

const hostHeaders = `<thead><tr><th>Name</th><th>Interface</th><th>Availability</th><th>Tags</th>` +
	`<th>Status</th><th>Latest data</th><th>Problems</th><th>Graphs</th><th>Dashboards</th><th>Web</th></tr></thead>`

func hostRow(id, tagCell string) string {
	return fmt.Sprintf(`<tr><td><a data-menu-popup='{"type":"host","data":{"hostid":"%s"}}'>host-%s</a></td>`+
		`<td>127.0.0.1:10050</td><td>ZBX</td>%s<td>Enabled</td><td>Latest data</td><td>Problems</td>`+
		`<td>Graphs</td><td>Dashboards</td><td>Web</td></tr>`, id, id, tagCell)
}

func taggedRow(id string) string {
	return hostRow(id, `<td><div class="tag-list"><span>os: linux</span></div></td>`)
}

func hostForm(headers string, rows ...string) string {
	return `<form name="host_view"><table class="list-table">` + headers +
		`<tbody>` + strings.Join(rows, "") + `</tbody></table></form>`
}

func hostPage(headers string, rows ...string) string {
	return `<html><body><div id="wrapper">` + hostForm(headers, rows...) + `</div></body></html>`
}

func newTestController(t *testing.T, page string, fetcher MetricsFetcher, cfg models.OverlayConfig) (*Controller, *dom.Document) {
	t.Helper()

	doc, err := dom.ParseString(page)
	require.NoError(t, err)

	c, err := NewController(doc, fetcher, cfg, logger.NewTestLogger())
	require.NoError(t, err)

	return c, doc
}

func query(t *testing.T, doc *dom.Document, selector string) []*html.Node {
	t.Helper()

	nodes, err := doc.QueryAll(selector)
	require.NoError(t, err)

	return nodes
}

func texts(nodes []*html.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = strings.TrimSpace(dom.TextContent(n))
	}

	return out
}

func rowCells(t *testing.T, doc *dom.Document, row int) []*html.Node {
	t.Helper()

	rows := query(t, doc, "tbody tr")
	require.Greater(t, len(rows), row)

	return dom.ChildElements(rows[row], "td")
}

func ptr[T any](v T) *T {
	return &v
}

func TestInjectTwoHostScenario(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	fetcher.EXPECT().
		FetchMetrics(gomock.Any(), []models.HostID{"1", "2"}).
		Return(map[models.HostID]models.HostMetricRecord{
			"1": {CPUUtilPercent: ptr(45.2), MemUtilPercent: ptr(55.0)},
		}, nil)

	c, doc := newTestController(t, hostPage(hostHeaders, taggedRow("1"), taggedRow("2")), fetcher, models.OverlayConfig{})

	require.True(t, c.Detect())
	require.NoError(t, c.Inject(context.Background()))
	assert.Equal(t, StateInjected, c.State())

	headers := texts(query(t, doc, "thead th"))
	assert.Equal(t, []string{
		"Name", "Interface", "Availability",
		"CPU Util %", "CPU Cores", "Memory Util %", "Memory Available", "Memory Total", "Disk Used %",
		"Tags", "Status", "Latest data", "Problems", "Graphs", "Dashboards", "Web",
	}, headers)

	row1 := rowCells(t, doc, 0)
	require.Len(t, row1, 16)
	assert.Equal(t, []string{"45.2%", "—", "55%", "—", "—", "—"}, texts(row1[3:9]))
	assert.True(t, dom.HasClass(row1[3].FirstChild, ClassOK))
	assert.True(t, dom.HasClass(row1[5].FirstChild, ClassOK))
	assert.Equal(t, "os: linux", texts(row1[9:10])[0])

	row2 := rowCells(t, doc, 1)
	require.Len(t, row2, 16)
	for _, td := range row2[3:9] {
		assert.True(t, dom.HasClass(td, CellClass))
		assert.Equal(t, "—", dom.TextContent(td))

		style, _ := dom.Attr(td, "style")
		assert.Equal(t, "color: #999", style)
	}
}

func TestInjectIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	fetcher.EXPECT().
		FetchMetrics(gomock.Any(), gomock.Any()).
		Return(map[models.HostID]models.HostMetricRecord{"1": {CPUCores: ptr(4)}}, nil).
		Times(1)

	c, doc := newTestController(t, hostPage(hostHeaders, taggedRow("1")), fetcher, models.OverlayConfig{})

	for range 3 {
		require.NoError(t, c.Inject(context.Background()))
		assert.Equal(t, StateInjected, c.State())
	}

	assert.Len(t, query(t, doc, "th."+HeaderClass), len(columns))
	assert.Len(t, query(t, doc, "td."+CellClass), len(columns))
	assert.Equal(t, "4", dom.TextContent(rowCells(t, doc, 0)[4]))
}

func TestInjectFetchFailureRendersPlaceholders(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	fetcher.EXPECT().FetchMetrics(gomock.Any(), gomock.Any()).Return(nil, errAggregatorDown)

	c, doc := newTestController(t, hostPage(hostHeaders, taggedRow("1"), taggedRow("2")), fetcher, models.OverlayConfig{})

	require.NoError(t, c.Inject(context.Background()))
	assert.Equal(t, StateInjected, c.State())

	cells := query(t, doc, "td."+CellClass)
	require.Len(t, cells, 2*len(columns))

	for _, td := range cells {
		assert.Equal(t, "—", dom.TextContent(td))
	}
}

func TestInjectTimeoutRendersPlaceholders(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	fetcher.EXPECT().
		FetchMetrics(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []models.HostID) (map[models.HostID]models.HostMetricRecord, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	c, doc := newTestController(t, hostPage(hostHeaders, taggedRow("1")), fetcher,
		models.OverlayConfig{RequestTimeout: models.Duration(20 * time.Millisecond)})

	require.NoError(t, c.Inject(context.Background()))
	assert.Equal(t, StateInjected, c.State())
	assert.Len(t, query(t, doc, "td."+CellClass), len(columns))
}

func TestInjectRowAnchors(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	fetcher.EXPECT().
		FetchMetrics(gomock.Any(), []models.HostID{"1", "2", "3"}).
		Return(map[models.HostID]models.HostMetricRecord{}, nil)

	noTags := hostRow("1", `<td>No tags</td>`)
	plain := hostRow("2", `<td>plain</td>`)
	short := `<tr><td><a data-menu-popup='{"data":{"hostid":"3"}}'>h3</a></td><td>x</td></tr>`
	broken := `<tr><td><a data-menu-popup='not json'>h4</a></td><td>No tags</td></tr>`

	c, doc := newTestController(t, hostPage(hostHeaders, noTags, plain, short, broken), fetcher, models.OverlayConfig{})

	require.NoError(t, c.Inject(context.Background()))

	// text anchor
	row := rowCells(t, doc, 0)
	require.Len(t, row, 16)
	assert.Equal(t, "No tags", dom.TextContent(row[9]))

	// fallback: len(cells) - 6
	row = rowCells(t, doc, 1)
	require.Len(t, row, 16)
	assert.True(t, dom.HasClass(row[4], CellClass))
	assert.Equal(t, "ZBX", dom.TextContent(row[2]))
	assert.Equal(t, "plain", dom.TextContent(row[3]))

	// negative fallback and unparsable host link are left alone
	assert.Len(t, rowCells(t, doc, 2), 2)
	assert.Len(t, rowCells(t, doc, 3), 2)
}

func TestInjectWithoutAnchorHeaderStillFillsRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	fetcher.EXPECT().FetchMetrics(gomock.Any(), gomock.Any()).Return(nil, nil)

	headers := `<thead><tr><th>Name</th><th>Labels</th></tr></thead>`
	c, doc := newTestController(t, hostPage(headers, taggedRow("1")), fetcher, models.OverlayConfig{})

	require.NoError(t, c.Inject(context.Background()))

	assert.Empty(t, query(t, doc, "th."+HeaderClass))
	assert.Len(t, query(t, doc, "td."+CellClass), len(columns))
}

func TestInjectNoHostIDsSkipsFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	row := `<tr><td>orphan</td><td>No tags</td></tr>`
	c, doc := newTestController(t, hostPage(hostHeaders, row), fetcher, models.OverlayConfig{})

	require.NoError(t, c.Inject(context.Background()))
	assert.Equal(t, StateInjected, c.State())
	assert.Len(t, query(t, doc, "th."+HeaderClass), len(columns))
	assert.Empty(t, query(t, doc, "td."+CellClass))
}

func TestInjectSkipsRowsDetachedDuringFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	c, doc := newTestController(t, hostPage(hostHeaders, taggedRow("1"), taggedRow("2")), fetcher, models.OverlayConfig{})

	rows := query(t, doc, "tbody tr")
	require.Len(t, rows, 2)

	fetcher.EXPECT().
		FetchMetrics(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []models.HostID) (map[models.HostID]models.HostMetricRecord, error) {
			require.NoError(t, doc.Remove(rows[1]))
			return map[models.HostID]models.HostMetricRecord{"2": {CPUUtilPercent: ptr(99.0)}}, nil
		})

	require.NoError(t, c.Inject(context.Background()))

	assert.Len(t, dom.ChildElements(rows[0], "td"), 16)
	assert.Len(t, dom.ChildElements(rows[1], "td"), 10)
}

func TestInjectSingleFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})

	fetcher.EXPECT().
		FetchMetrics(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []models.HostID) (map[models.HostID]models.HostMetricRecord, error) {
			close(entered)
			<-release

			return map[models.HostID]models.HostMetricRecord{}, nil
		}).
		Times(1)

	c, doc := newTestController(t, hostPage(hostHeaders, taggedRow("1")), fetcher, models.OverlayConfig{})

	done := make(chan error, 1)
	go func() { done <- c.Inject(context.Background()) }()

	<-entered
	assert.Equal(t, StateInjecting, c.State())
	require.ErrorIs(t, c.Inject(context.Background()), ErrPassInFlight)

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, StateInjected, c.State())
	assert.Len(t, query(t, doc, "th."+HeaderClass), len(columns))
}

func TestInjectWithoutTable(t *testing.T) {
	ctrl := gomock.NewController(t)
	c, _ := newTestController(t, `<div id="wrapper"></div>`, NewMockMetricsFetcher(ctrl), models.OverlayConfig{})

	assert.False(t, c.Detect())
	assert.ErrorIs(t, c.Inject(context.Background()), errTableMissing)

	injected, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, injected)
	assert.Equal(t, StateDetecting, c.State())
}

func TestRunReappliesAfterReplacement(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	var fetches atomic.Int32

	fetcher.EXPECT().
		FetchMetrics(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []models.HostID) (map[models.HostID]models.HostMetricRecord, error) {
			fetches.Add(1)
			return map[models.HostID]models.HostMetricRecord{"1": {DiskUsedPercent: ptr(70.0)}}, nil
		}).
		Times(2)

	c, doc := newTestController(t, `<html><body><div id="wrapper"></div></body></html>`, fetcher, models.OverlayConfig{
		PollInterval: models.Duration(5 * time.Millisecond),
		SettleDelay:  models.Duration(10 * time.Millisecond),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.State() == StateDetecting }, time.Second, 5*time.Millisecond)

	wrapper := query(t, doc, "#wrapper")[0]
	form, err := dom.ParseFragment(hostForm(hostHeaders, taggedRow("1")), "div")
	require.NoError(t, err)
	require.NoError(t, doc.AppendChild(wrapper, form[0]))

	require.Eventually(t, func() bool {
		return c.State() == StateInjected && fetches.Load() == 1
	}, time.Second, 5*time.Millisecond)

	replacement, err := dom.ParseFragment(hostForm(hostHeaders, taggedRow("1")), "div")
	require.NoError(t, err)
	require.NoError(t, doc.ReplaceWith(form[0], replacement[0]))

	require.Eventually(t, func() bool {
		return fetches.Load() == 2 && c.State() == StateInjected
	}, time.Second, 5*time.Millisecond)

	assert.Len(t, query(t, doc, `form[name="host_view"] th.`+HeaderClass), len(columns))

	cells := query(t, doc, "td."+CellClass)
	require.Len(t, cells, len(columns))
	assert.True(t, dom.HasClass(cells[5].FirstChild, ClassWarning))

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, StateIdle, c.State())
}

func TestRunReappliesAfterTableReplacement(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockMetricsFetcher(ctrl)

	var fetches atomic.Int32

	fetcher.EXPECT().
		FetchMetrics(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []models.HostID) (map[models.HostID]models.HostMetricRecord, error) {
			fetches.Add(1)
			return map[models.HostID]models.HostMetricRecord{"1": {CPUUtilPercent: ptr(85.0)}}, nil
		}).
		Times(2)

	c, doc := newTestController(t, hostPage(hostHeaders, taggedRow("1")), fetcher, models.OverlayConfig{
		PollInterval: models.Duration(5 * time.Millisecond),
		SettleDelay:  models.Duration(10 * time.Millisecond),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return c.State() == StateInjected && fetches.Load() == 1
	}, time.Second, 5*time.Millisecond)

	table := query(t, doc, "table.list-table")[0]

	fresh, err := dom.ParseFragment(hostForm(hostHeaders, taggedRow("1")), "div")
	require.NoError(t, err)

	freshTable := fresh[0].FirstChild
	require.NotNil(t, freshTable)
	require.NoError(t, doc.ReplaceWith(table, freshTable))

	require.Eventually(t, func() bool {
		return fetches.Load() == 2 && c.State() == StateInjected
	}, time.Second, 5*time.Millisecond)

	assert.Len(t, query(t, doc, `form[name="host_view"] th.`+HeaderClass), len(columns))

	cells := query(t, doc, "td."+CellClass)
	require.Len(t, cells, len(columns))
	assert.True(t, dom.HasClass(cells[0].FirstChild, ClassCritical))

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestNewControllerRejectsBadSelector(t *testing.T) {
	doc, err := dom.ParseString("<p></p>")
	require.NoError(t, err)

	_, err = NewController(doc, nil, models.OverlayConfig{TableSelector: "table["}, nil)
	assert.Error(t, err)
}
