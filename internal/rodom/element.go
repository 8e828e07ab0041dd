package rodom

import (
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domclick/dom"
)

// Element is a live element handle.
type Element struct {
	doc *Document
	el  *rod.Element
}

// Rod returns the underlying rod element.
func (e *Element) Rod() *rod.Element { return e.el }

// relative evaluates js with this bound to the element and wraps the
// element it returns.
func (e *Element) relative(op, js string, args ...interface{}) (dom.Element, error) {
	obj, err := e.el.Evaluate(rod.Eval(js, args...).ByObject())
	if err != nil {
		return nil, fmt.Errorf("rodom: %s: %w", op, err)
	}
	return e.doc.element(obj)
}

func (e *Element) Tag() (string, error) {
	res, err := e.el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return "", fmt.Errorf("rodom: tag: %w", err)
	}
	return res.Value.Str(), nil
}

func (e *Element) Attr(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("rodom: attr %s: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *Element) Text() (string, error) {
	res, err := e.el.Eval(`() => this.textContent || ""`)
	if err != nil {
		return "", fmt.Errorf("rodom: text: %w", err)
	}
	return res.Value.Str(), nil
}

func (e *Element) Parent() (dom.Element, error) {
	return e.relative("parent", `() => this.parentElement`)
}

func (e *Element) NextSibling() (dom.Element, error) {
	return e.relative("next sibling", `() => {
		const n = this.nextSibling;
		return n && n.nodeType === Node.ELEMENT_NODE ? n : null;
	}`)
}

func (e *Element) Query(selector string) (dom.Element, error) {
	return e.relative("query "+selector, `(s) => this.querySelector(s)`, selector)
}

func (e *Element) QueryAll(selector string) ([]dom.Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("rodom: query all %q: %w", selector, err)
	}
	return e.doc.elements(els), nil
}

func (e *Element) TextNodes() ([]dom.TextNode, error) {
	// Two evaluations. Only the host can change the tree in between;
	// a length mismatch catches most of that.
	res, err := e.el.Eval(`() => {
		const w = document.createTreeWalker(this, NodeFilter.SHOW_TEXT);
		const out = [];
		for (let n = w.nextNode(); n; n = w.nextNode()) out.push(n.textContent);
		return out;
	}`)
	if err != nil {
		return nil, fmt.Errorf("rodom: text nodes: %w", err)
	}
	parents, err := e.doc.page.ElementsByJS(rod.Eval(`() => {
		const w = document.createTreeWalker(this, NodeFilter.SHOW_TEXT);
		const out = [];
		for (let n = w.nextNode(); n; n = w.nextNode()) out.push(n.parentElement);
		return out;
	}`).This(e.el.Object))
	if err != nil {
		return nil, fmt.Errorf("rodom: text node parents: %w", err)
	}

	texts := res.Value.Arr()
	if len(texts) != len(parents) {
		return nil, fmt.Errorf("rodom: text nodes changed during read")
	}
	out := make([]dom.TextNode, len(texts))
	for i, t := range texts {
		out[i] = dom.TextNode{Text: t.Str(), Parent: &Element{doc: e.doc, el: parents[i]}}
	}
	return out, nil
}

func (e *Element) Same(other dom.Element) (bool, error) {
	o, ok := other.(*Element)
	if !ok || o == nil {
		return false, nil
	}
	res, err := e.el.Eval(`(o) => this === o`, o.el.Object)
	if err != nil {
		return false, fmt.Errorf("rodom: compare: %w", err)
	}
	return res.Value.Bool(), nil
}

func (e *Element) Click() error {
	if _, err := e.el.Eval(`() => this.click()`); err != nil {
		return fmt.Errorf("rodom: click: %w", err)
	}
	return nil
}

func (e *Element) Clone() (dom.Element, error) {
	return e.relative("clone", `() => this.cloneNode(true)`)
}

func (e *Element) SetAttr(name, value string) error {
	if _, err := e.el.Eval(`(n, v) => this.setAttribute(n, v)`, name, value); err != nil {
		return fmt.Errorf("rodom: set attr %s: %w", name, err)
	}
	return nil
}

func (e *Element) SetStyle(property, value string) error {
	if _, err := e.el.Eval(`(p, v) => this.style.setProperty(p, v)`, property, value); err != nil {
		return fmt.Errorf("rodom: set style %s: %w", property, err)
	}
	return nil
}

func (e *Element) ReplaceText(substr, text string) (bool, error) {
	res, err := e.el.Eval(`(sub, text) => {
		const w = document.createTreeWalker(this, NodeFilter.SHOW_TEXT);
		for (let n = w.nextNode(); n; n = w.nextNode()) {
			if (n.textContent.includes(sub)) {
				n.textContent = text;
				return true;
			}
		}
		return false;
	}`, substr, text)
	if err != nil {
		return false, fmt.Errorf("rodom: replace text: %w", err)
	}
	return res.Value.Bool(), nil
}

func (e *Element) InsertAfter(ref dom.Element) error {
	r, err := e.doc.own(ref)
	if err != nil {
		return err
	}
	_, err = e.el.Eval(`(ref) => {
		if (!ref.parentNode) throw new Error("insert after detached node");
		ref.parentNode.insertBefore(this, ref.nextSibling);
	}`, r.el.Object)
	if err != nil {
		return fmt.Errorf("rodom: insert: %w", err)
	}
	return nil
}

func (e *Element) OnClick(fn func()) error {
	return e.doc.onClick(e, fn)
}
