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
	"net/url"
	"strings"

	"github.com/carverauto/hostmetrics/pkg/dom"
)

const hostViewAction = "host.view"

// IsHostViewURL matches action=host.view and action=host.view.refresh.
func IsHostViewURL(u *url.URL) bool {
	if u == nil {
		return false
	}

	return strings.HasPrefix(u.Query().Get("action"), hostViewAction)
}

// IsHostViewPage applies the overlay gate: a host-view URL or a document that
// carries the host-view container.
func IsHostViewPage(u *url.URL, doc *dom.Document, containerSelector string) bool {
	if IsHostViewURL(u) {
		return true
	}

	if doc == nil {
		return false
	}

	if containerSelector == "" {
		containerSelector = DefaultContainerSelector
	}

	node, err := doc.QueryFirst(containerSelector)

	return err == nil && node != nil
}
