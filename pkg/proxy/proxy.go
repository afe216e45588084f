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

// Package proxy serves the monitoring frontend through a reverse proxy that
// adds the host metric columns to host-view pages.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carverauto/hostmetrics/pkg/dom"
	srHttp "github.com/carverauto/hostmetrics/pkg/http"
	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
	"github.com/carverauto/hostmetrics/pkg/overlay"
)

const maxRewriteBytes = 16 << 20

const (
	resultInjected = "injected"
	resultSkipped  = "skipped"
	resultFailed   = "failed"
)

// Proxy forwards every request upstream and rewrites host-view HTML responses.
type Proxy struct {
	upstream *url.URL
	actions  []string
	overlay  models.OverlayConfig
	fetcher  overlay.MetricsFetcher
	rp       *httputil.ReverseProxy
	log      logger.Logger
	pages    *prometheus.CounterVec
}

type Option func(*Proxy)

func WithLogger(log logger.Logger) Option {
	return func(p *Proxy) {
		p.log = log
	}
}

// WithTransport replaces the upstream round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Proxy) {
		p.rp.Transport = rt
	}
}

// WithMetrics registers a per-result page counter on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Proxy) {
		p.pages = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostmetrics",
			Subsystem: "proxy",
			Name:      "pages_total",
			Help:      "Candidate HTML pages by overlay result",
		}, []string{"result"})

		reg.MustRegister(p.pages)
	}
}

func New(cfg models.ProxyConfig, overlayCfg models.OverlayConfig, fetcher overlay.MetricsFetcher, opts ...Option) (*Proxy, error) {
	if cfg.Upstream == "" {
		return nil, errMissingUpstream
	}

	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidUpstream, err)
	}

	if (upstream.Scheme != "http" && upstream.Scheme != "https") || upstream.Host == "" {
		return nil, errInvalidUpstream
	}

	p := &Proxy{
		upstream: upstream,
		actions:  cfg.Actions,
		overlay:  overlayCfg,
		fetcher:  fetcher,
		log:      logger.NewTestLogger(),
	}

	p.rp = &httputil.ReverseProxy{
		Rewrite:        p.rewrite,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.handleError,
	}

	for _, o := range opts {
		o(p)
	}

	return p, nil
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.rp.ServeHTTP(w, r)
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(p.upstream)
	pr.SetXForwarded()

	// bodies must arrive uncompressed to be rewritten
	pr.Out.Header.Del("Accept-Encoding")
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	p.log.Error().Err(err).Str("path", r.URL.Path).Msg("Upstream request failed")

	srHttp.WriteJSONError(w, http.StatusBadGateway, "upstream unavailable")
}

// candidate reports whether resp is an uncompressed 200 HTML page.
func candidate(resp *http.Response) bool {
	if resp.StatusCode != http.StatusOK || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}

	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	return err == nil && mediaType == "text/html"
}

func (p *Proxy) modifyResponse(resp *http.Response) error {
	if !candidate(resp) {
		return nil
	}

	original := resp.Body

	body, err := io.ReadAll(io.LimitReader(original, maxRewriteBytes+1))
	if err != nil {
		_ = original.Close()
		return fmt.Errorf("failed to read upstream body: %w", err)
	}

	if len(body) > maxRewriteBytes {
		p.log.Debug().Str("path", resp.Request.URL.Path).Msg("Page too large to augment, streaming unchanged")
		resp.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), original), Closer: original}

		return nil
	}

	_ = original.Close()

	out, result := p.Augment(resp.Request.Context(), resp.Request.URL, body)
	p.count(result)

	if result == resultInjected {
		resp.Header.Del("ETag")
	}

	resp.Body = io.NopCloser(bytes.NewReader(out))
	resp.ContentLength = int64(len(out))
	resp.Header.Set("Content-Length", strconv.Itoa(len(out)))

	return nil
}

// Augment runs one overlay pass over page. The original bytes come back
// whenever the page is not a host view or the pass fails.
func (p *Proxy) Augment(ctx context.Context, u *url.URL, page []byte) ([]byte, string) {
	doc, err := dom.Parse(bytes.NewReader(page))
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to parse upstream page")
		return page, resultFailed
	}

	if !p.actionAllowed(u) && !overlay.IsHostViewPage(u, doc, p.overlay.ContainerSelector) {
		return page, resultSkipped
	}

	ctrl, err := overlay.NewController(doc, p.fetcher, p.overlay, p.log)
	if err != nil {
		p.log.Warn().Err(err).Msg("Invalid overlay configuration")
		return page, resultFailed
	}

	injected, err := ctrl.RunOnce(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("Overlay pass failed")
		return page, resultFailed
	}

	if !injected {
		return page, resultSkipped
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		p.log.Warn().Err(err).Msg("Failed to render augmented page")
		return page, resultFailed
	}

	return buf.Bytes(), resultInjected
}

func (p *Proxy) actionAllowed(u *url.URL) bool {
	if u == nil || len(p.actions) == 0 {
		return false
	}

	action := strings.TrimSpace(u.Query().Get("action"))

	return action != "" && slices.Contains(p.actions, action)
}

func (p *Proxy) count(result string) {
	if p.pages != nil {
		p.pages.WithLabelValues(result).Inc()
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}
