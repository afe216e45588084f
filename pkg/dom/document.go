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

// Package dom is a mutable HTML document with CSS queries and child-list observers.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const defaultObserverBuffer = 4

// Mutation reports a change to the children of Target.
type Mutation struct {
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
}

// Document serializes every read and write of the tree through one lock.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	observers map[*html.Node][]*Observer
}

// Observer receives child-list mutations of a single target node.
type Observer struct {
	doc    *Document
	target *html.Node
	events chan Mutation
	once   sync.Once
}

func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	return New(root), nil
}

func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// New wraps an existing tree.
func New(root *html.Node) *Document {
	return &Document{
		root:      root,
		observers: make(map[*html.Node][]*Observer),
	}
}

// ParseFragment parses markup as the content of an element named contextTag.
func ParseFragment(markup, contextTag string) ([]*html.Node, error) {
	if contextTag == "" {
		contextTag = "body"
	}

	ctx := &html.Node{Type: html.ElementNode, Data: contextTag, DataAtom: atom.Lookup([]byte(contextTag))}

	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}

	return nodes, nil
}

// QueryFirst returns the first node matching selector, or nil.
func (d *Document) QueryFirst(selector string) (*html.Node, error) {
	sel, err := Compile(selector)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return Find(d.root, sel), nil
}

func (d *Document) QueryAll(selector string) ([]*html.Node, error) {
	sel, err := Compile(selector)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return FindAll(d.root, sel), nil
}

// Update runs fn with exclusive access to the tree. fn must not call other
// Document methods.
func (d *Document) Update(fn func(root *html.Node) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return fn(d.root)
}

// ReplaceWith swaps old for replacement and notifies observers of old's parent.
func (d *Document) ReplaceWith(old, replacement *html.Node) error {
	if old == nil || replacement == nil {
		return errNilNode
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	parent := old.Parent
	if parent == nil {
		return ErrDetached
	}

	if replacement.Parent != nil {
		replacement.Parent.RemoveChild(replacement)
	}

	parent.InsertBefore(replacement, old)
	parent.RemoveChild(old)

	d.notify(Mutation{Target: parent, Added: []*html.Node{replacement}, Removed: []*html.Node{old}})

	return nil
}

// AppendChild adds child as the last child of parent and notifies observers.
func (d *Document) AppendChild(parent, child *html.Node) error {
	if parent == nil || child == nil {
		return errNilNode
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}

	parent.AppendChild(child)
	d.notify(Mutation{Target: parent, Added: []*html.Node{child}})

	return nil
}

// Remove detaches n and notifies observers of its former parent.
func (d *Document) Remove(n *html.Node) error {
	if n == nil {
		return errNilNode
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	parent := n.Parent
	if parent == nil {
		return ErrDetached
	}

	parent.RemoveChild(n)
	d.notify(Mutation{Target: parent, Removed: []*html.Node{n}})

	return nil
}

// Observe subscribes to child-list mutations of target.
func (d *Document) Observe(target *html.Node) *Observer {
	o := &Observer{
		doc:    d,
		target: target,
		events: make(chan Mutation, defaultObserverBuffer),
	}

	d.mu.Lock()
	d.observers[target] = append(d.observers[target], o)
	d.mu.Unlock()

	return o
}

// notify requires d.mu. A full observer buffer drops the event; the pending
// events already signal that the target changed.
func (d *Document) notify(m Mutation) {
	for _, o := range d.observers[m.Target] {
		select {
		case o.events <- m:
		default:
		}
	}
}

// Contains reports whether n is attached to this document's tree.
func (d *Document) Contains(n *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Attached(d.root, n)
}

// Attached is Contains for callers already inside Update.
func Attached(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}

	return false
}

func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}

	return buf.String()
}

// Events delivers mutations until Disconnect.
func (o *Observer) Events() <-chan Mutation {
	return o.events
}

func (o *Observer) Target() *html.Node {
	return o.target
}

// Disconnect stops delivery and closes Events. It is safe to call more than once.
func (o *Observer) Disconnect() {
	o.once.Do(func() {
		d := o.doc

		d.mu.Lock()
		defer d.mu.Unlock()

		list := d.observers[o.target]
		for i, other := range list {
			if other == o {
				d.observers[o.target] = append(list[:i], list[i+1:]...)
				break
			}
		}

		if len(d.observers[o.target]) == 0 {
			delete(d.observers, o.target)
		}

		close(o.events)
	})
}
