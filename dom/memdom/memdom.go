// Package memdom implements dom.Document over a parsed HTML tree. It backs
// the agents in tests and in offline replays of saved pages.
//
// A Document is not safe for concurrent use; serialise access through an
// executor the way the live backend does.
package memdom

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/hazyhaar/domclick/dom"
)

// Document is a parsed page with DOM-like event plumbing.
type Document struct {
	root *html.Node

	listeners map[*html.Node][]func()
	observers []observer
	ctxMenu   []func(dom.Element)
	fragFns   []func(string)
	fragment  string

	clicks []*html.Node

	// Mutation records queued while an observer callback runs, so that
	// delivery never re-enters a callback.
	queue      []delivery
	delivering bool
}

type observer struct {
	root *html.Node
	fn   func([]dom.Element)
}

type delivery struct {
	fn    func([]dom.Element)
	added []dom.Element
}

// Parse builds a Document from an HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("memdom: parse: %w", err)
	}
	return &Document{
		root:      root,
		listeners: make(map[*html.Node][]func()),
	}, nil
}

// ParseString is Parse over a string.
func ParseString(src string) (*Document, error) {
	return Parse(strings.NewReader(src))
}

func (d *Document) wrap(n *html.Node) dom.Element {
	if n == nil {
		return nil
	}
	return &Element{doc: d, n: n}
}

func (d *Document) Body() (dom.Element, error) {
	return d.Query("body")
}

func (d *Document) Query(selector string) (dom.Element, error) {
	return query(d, d.root, selector)
}

func (d *Document) QueryAll(selector string) ([]dom.Element, error) {
	return queryAll(d, d.root, selector)
}

func (d *Document) Observe(root dom.Element, fn func([]dom.Element)) error {
	n, err := d.node(root)
	if err != nil {
		return err
	}
	d.observers = append(d.observers, observer{root: n, fn: fn})
	return nil
}

func (d *Document) OnContextMenu(fn func(dom.Element)) error {
	d.ctxMenu = append(d.ctxMenu, fn)
	return nil
}

func (d *Document) OnFragmentChange(fn func(string)) error {
	d.fragFns = append(d.fragFns, fn)
	return nil
}

func (d *Document) SetFragment(fragment string) error {
	fragment = strings.TrimPrefix(fragment, "#")
	if fragment == d.fragment {
		return nil
	}
	d.fragment = fragment
	for _, fn := range d.fragFns {
		fn(fragment)
	}
	return nil
}

// Fragment returns the current location fragment.
func (d *Document) Fragment() string { return d.fragment }

// ContextMenu simulates a right-click on target.
func (d *Document) ContextMenu(target dom.Element) {
	for _, fn := range d.ctxMenu {
		fn(target)
	}
}

// Append parses fragment in the context of parent, appends the resulting
// nodes and notifies observers. It returns the appended elements.
func (d *Document) Append(parent dom.Element, fragment string) ([]dom.Element, error) {
	p, err := d.node(parent)
	if err != nil {
		return nil, err
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), p)
	if err != nil {
		return nil, fmt.Errorf("memdom: parse fragment: %w", err)
	}
	var added []dom.Element
	for _, n := range nodes {
		p.AppendChild(n)
		if n.Type == html.ElementNode {
			added = append(added, d.wrap(n))
		}
	}
	if len(nodes) > 0 {
		d.notify(p, added)
	}
	return added, nil
}

// Remove detaches el from the tree.
func (d *Document) Remove(el dom.Element) error {
	n, err := d.node(el)
	if err != nil {
		return err
	}
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	return nil
}

// Clicks returns the number of clicks dispatched on el.
func (d *Document) Clicks(el dom.Element) int {
	n, err := d.node(el)
	if err != nil {
		return 0
	}
	count := 0
	for _, c := range d.clicks {
		if c == n {
			count++
		}
	}
	return count
}

// TotalClicks returns the number of clicks dispatched anywhere.
func (d *Document) TotalClicks() int { return len(d.clicks) }

// HTML renders the current tree.
func (d *Document) HTML() string {
	var b strings.Builder
	_ = html.Render(&b, d.root)
	return b.String()
}

func (d *Document) node(el dom.Element) (*html.Node, error) {
	e, ok := el.(*Element)
	if !ok || e == nil {
		return nil, fmt.Errorf("memdom: foreign element %T", el)
	}
	if e.doc != d {
		return nil, fmt.Errorf("memdom: element belongs to another document")
	}
	return e.n, nil
}

func (d *Document) notify(parent *html.Node, added []dom.Element) {
	for _, o := range d.observers {
		if contains(o.root, parent) {
			d.queue = append(d.queue, delivery{fn: o.fn, added: added})
		}
	}
	if d.delivering {
		return
	}
	d.delivering = true
	defer func() { d.delivering = false }()
	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		next.fn(next.added)
	}
}

func (d *Document) dispatchClick(n *html.Node) {
	d.clicks = append(d.clicks, n)

	var path []*html.Node
	for c := n; c != nil; c = c.Parent {
		path = append(path, c)
	}
	// Capture phase: outermost listener wins and stops propagation.
	for i := len(path) - 1; i >= 0; i-- {
		fns := d.listeners[path[i]]
		if len(fns) == 0 {
			continue
		}
		for _, fn := range fns {
			fn()
		}
		return
	}
}

func contains(root, n *html.Node) bool {
	for c := n; c != nil; c = c.Parent {
		if c == root {
			return true
		}
	}
	return false
}

func compile(selector string) (cascadia.SelectorGroup, error) {
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("memdom: selector %q: %w", selector, err)
	}
	return sel, nil
}

func query(d *Document, n *html.Node, selector string) (dom.Element, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if m := cascadia.Query(n, sel); m != nil {
		return d.wrap(m), nil
	}
	return nil, nil
}

func queryAll(d *Document, n *html.Node, selector string) ([]dom.Element, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	matches := cascadia.QueryAll(n, sel)
	out := make([]dom.Element, 0, len(matches))
	for _, m := range matches {
		out = append(out, d.wrap(m))
	}
	return out, nil
}
