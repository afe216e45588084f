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

package dom

import (
	"fmt"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var selectorCache sync.Map

// Compile parses a CSS selector group, caching the result.
func Compile(selector string) (cascadia.Selector, error) {
	if cached, ok := selectorCache.Load(selector); ok {
		return cached.(cascadia.Selector), nil
	}

	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", errInvalidSelect, selector, err)
	}

	selectorCache.Store(selector, sel)

	return sel, nil
}

// MustCompile is Compile for selectors known at build time.
func MustCompile(selector string) cascadia.Selector {
	sel, err := Compile(selector)
	if err != nil {
		panic(err)
	}

	return sel
}

// Find returns the first descendant of n (or n itself) matching sel.
func Find(n *html.Node, sel cascadia.Selector) *html.Node {
	if n == nil {
		return nil
	}

	return sel.MatchFirst(n)
}

// FindAll returns every match under n in document order.
func FindAll(n *html.Node, sel cascadia.Selector) []*html.Node {
	if n == nil {
		return nil
	}

	return sel.MatchAll(n)
}
