// Package rodom implements dom.Document over a live Chrome tab. Reads and
// writes are CDP evaluations; page events (mutations, right-clicks,
// fragment changes, clicks on injected controls) come back through a
// Runtime binding installed by bootstrap.js.
package rodom

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domclick/dom"
)

//go:embed bootstrap.js
var bootstrapJS string

const bindingName = "__domclickBinding"

// message is a binding payload from bootstrap.js.
type message struct {
	Kind     string `json:"kind"`
	ID       int    `json:"id"`
	Refs     []int  `json:"refs"`
	Fragment string `json:"fragment"`
}

// Document is a live page. Callbacks run on the binding listener
// goroutine and must not block.
type Document struct {
	page   *rod.Page
	logger *slog.Logger

	mu        sync.Mutex
	nextID    int
	clicks    map[int]func()
	observers map[int]func([]dom.Element)
	ctxMenu   []func(dom.Element)
	fragFns   []func(string)
}

// New installs the bootstrap script on page, for the current document
// and every later one, and listens for its events until ctx is done.
func New(ctx context.Context, page *rod.Page, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Document{
		page:      page,
		logger:    logger,
		clicks:    make(map[int]func()),
		observers: make(map[int]func([]dom.Element)),
	}

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		return nil, fmt.Errorf("rodom: add binding: %w", err)
	}
	if _, err := page.EvalOnNewDocument("(" + bootstrapJS + ")()"); err != nil {
		return nil, fmt.Errorf("rodom: install bootstrap: %w", err)
	}
	if _, err := page.Eval(bootstrapJS); err != nil {
		return nil, fmt.Errorf("rodom: run bootstrap: %w", err)
	}

	go page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		d.dispatch(e.Payload)
	})()
	return d, nil
}

// Reset drops every registered callback. Call it when the page has
// reloaded: the new document knows nothing of the old listeners.
func (d *Document) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicks = make(map[int]func())
	d.observers = make(map[int]func([]dom.Element))
	d.ctxMenu = nil
	d.fragFns = nil
}

// Page returns the underlying rod page.
func (d *Document) Page() *rod.Page { return d.page }

func (d *Document) dispatch(payload string) {
	var msg message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		d.logger.Warn("rodom: bad binding payload", "error", err)
		return
	}

	switch msg.Kind {
	case "click":
		d.mu.Lock()
		fn := d.clicks[msg.ID]
		d.mu.Unlock()
		if fn != nil {
			fn()
		}
	case "mutation":
		d.mu.Lock()
		fn := d.observers[msg.ID]
		d.mu.Unlock()
		if fn == nil {
			return
		}
		// Text-only batches arrive with no refs and are still reported.
		fn(d.take(msg.Refs))
	case "contextmenu":
		targets := d.take(msg.Refs)
		if len(targets) == 0 {
			return
		}
		d.mu.Lock()
		fns := slices.Clone(d.ctxMenu)
		d.mu.Unlock()
		for _, fn := range fns {
			fn(targets[0])
		}
	case "hashchange":
		d.mu.Lock()
		fns := slices.Clone(d.fragFns)
		d.mu.Unlock()
		for _, fn := range fns {
			fn(msg.Fragment)
		}
	default:
		d.logger.Debug("rodom: unknown binding message", "kind", msg.Kind)
	}
}

// take resolves parked node ids to elements. Nodes already gone are
// skipped.
func (d *Document) take(ids []int) []dom.Element {
	out := make([]dom.Element, 0, len(ids))
	for _, id := range ids {
		obj, err := d.page.Evaluate(rod.Eval(`(id) => window.__domclick.take(id)`, id).ByObject())
		if err != nil {
			d.logger.Debug("rodom: take node failed", "id", id, "error", err)
			continue
		}
		el, err := d.element(obj)
		if err != nil {
			d.logger.Debug("rodom: wrap node failed", "id", id, "error", err)
			continue
		}
		if el != nil {
			out = append(out, el)
		}
	}
	return out
}

// element wraps a remote object; a null object yields nil.
func (d *Document) element(obj *proto.RuntimeRemoteObject) (dom.Element, error) {
	if obj == nil || obj.ObjectID == "" {
		return nil, nil
	}
	el, err := d.page.ElementFromObject(obj)
	if err != nil {
		return nil, err
	}
	return &Element{doc: d, el: el}, nil
}

func (d *Document) elements(els rod.Elements) []dom.Element {
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &Element{doc: d, el: el})
	}
	return out
}

func (d *Document) Body() (dom.Element, error) {
	obj, err := d.page.Evaluate(rod.Eval(`() => document.body`).ByObject())
	if err != nil {
		return nil, fmt.Errorf("rodom: body: %w", err)
	}
	return d.element(obj)
}

func (d *Document) Query(selector string) (dom.Element, error) {
	obj, err := d.page.Evaluate(rod.Eval(`(s) => document.querySelector(s)`, selector).ByObject())
	if err != nil {
		return nil, fmt.Errorf("rodom: query %q: %w", selector, err)
	}
	return d.element(obj)
}

func (d *Document) QueryAll(selector string) ([]dom.Element, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("rodom: query all %q: %w", selector, err)
	}
	return d.elements(els), nil
}

func (d *Document) Observe(root dom.Element, fn func([]dom.Element)) error {
	r, err := d.own(root)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.observers[id] = fn
	d.mu.Unlock()

	if _, err := r.el.Eval(`(id) => window.__domclick.observe(this, id)`, id); err != nil {
		return fmt.Errorf("rodom: observe: %w", err)
	}
	return nil
}

func (d *Document) OnContextMenu(fn func(dom.Element)) error {
	d.mu.Lock()
	d.ctxMenu = append(d.ctxMenu, fn)
	d.mu.Unlock()
	return nil
}

func (d *Document) OnFragmentChange(fn func(string)) error {
	d.mu.Lock()
	d.fragFns = append(d.fragFns, fn)
	d.mu.Unlock()
	return nil
}

func (d *Document) SetFragment(fragment string) error {
	if _, err := d.page.Eval(`(f) => { location.hash = f }`, fragment); err != nil {
		return fmt.Errorf("rodom: set fragment: %w", err)
	}
	return nil
}

// own checks that el is one of this document's elements.
func (d *Document) own(el dom.Element) (*Element, error) {
	e, ok := el.(*Element)
	if !ok || e == nil {
		return nil, fmt.Errorf("rodom: foreign element %T", el)
	}
	if e.doc != d {
		return nil, fmt.Errorf("rodom: element belongs to another document")
	}
	return e, nil
}

func (d *Document) onClick(e *Element, fn func()) error {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.clicks[id] = fn
	d.mu.Unlock()

	if _, err := e.el.Eval(`(id) => window.__domclick.onClick(this, id)`, id); err != nil {
		d.mu.Lock()
		delete(d.clicks, id)
		d.mu.Unlock()
		return fmt.Errorf("rodom: click listener: %w", err)
	}
	return nil
}
