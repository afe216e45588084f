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

package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/carverauto/hostmetrics/pkg/dom"
	"github.com/carverauto/hostmetrics/pkg/logger"
	"github.com/carverauto/hostmetrics/pkg/models"
	"github.com/carverauto/hostmetrics/pkg/overlay"
)

// RenderOptions configures a one-shot overlay pass over a saved page.
type RenderOptions struct {
	Fetcher overlay.MetricsFetcher
	Overlay models.OverlayConfig
	// PageURL is the address the page was served from; it feeds the host-view gate.
	PageURL string
	Log     logger.Logger
}

// Render copies the page from in to out, adding the metric columns when it is
// a host view with a populated table. It reports whether columns were added.
func Render(ctx context.Context, in io.Reader, out io.Writer, opts RenderOptions) (bool, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewTestLogger()
	}

	page, err := io.ReadAll(in)
	if err != nil {
		return false, fmt.Errorf("failed to read page: %w", err)
	}

	var pageURL *url.URL

	if opts.PageURL != "" {
		if pageURL, err = url.Parse(opts.PageURL); err != nil {
			return false, fmt.Errorf("invalid page url: %w", err)
		}
	}

	doc, err := dom.Parse(bytes.NewReader(page))
	if err != nil {
		return false, err
	}

	injected := false

	if overlay.IsHostViewPage(pageURL, doc, opts.Overlay.ContainerSelector) {
		ctrl, err := overlay.NewController(doc, opts.Fetcher, opts.Overlay, log)
		if err != nil {
			return false, err
		}

		if injected, err = ctrl.RunOnce(ctx); err != nil {
			return false, err
		}
	}

	if !injected {
		log.Info().Msg("No host table found, page left unchanged")

		_, err = out.Write(page)

		return false, err
	}

	return true, doc.Render(out)
}
