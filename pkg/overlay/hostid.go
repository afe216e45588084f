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
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/carverauto/hostmetrics/pkg/dom"
	"github.com/carverauto/hostmetrics/pkg/models"
)

type menuPopup struct {
	Data struct {
		HostID interface{} `json:"hostid"`
	} `json:"data"`
}

// rowBinding pairs a table row with the host it lists. Valid for one pass only.
type rowBinding struct {
	row    *html.Node
	hostID models.HostID
}

// HostIDFromRow reads data.hostid from the JSON menu attribute of the row's host link.
func HostIDFromRow(row *html.Node, link cascadia.Selector, attr string) (models.HostID, error) {
	a := findBelow(row, link)
	if a == nil {
		return "", errNoHostLink
	}

	raw, ok := dom.Attr(a, attr)
	if !ok {
		return "", errNoHostLink
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var popup menuPopup
	if err := dec.Decode(&popup); err != nil {
		return "", fmt.Errorf("%w: %w", errBadHostLink, err)
	}

	id, ok := models.HostIDFromJSON(popup.Data.HostID)
	if !ok {
		return "", errNoHostID
	}

	return id, nil
}

// findBelow matches descendants of n only, never n itself.
func findBelow(n *html.Node, sel cascadia.Selector) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := dom.Find(c, sel); found != nil {
			return found
		}
	}

	return nil
}
