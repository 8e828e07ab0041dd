package memdom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domclick/dom"
)

// Element is a memdom element handle.
type Element struct {
	doc *Document
	n   *html.Node
}

func (e *Element) Tag() (string, error) {
	return strings.ToLower(e.n.Data), nil
}

func (e *Element) Attr(name string) (string, bool, error) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

func (e *Element) Text() (string, error) {
	var b strings.Builder
	walkText(e.n, func(t *html.Node) bool {
		b.WriteString(t.Data)
		return true
	})
	return b.String(), nil
}

func (e *Element) Parent() (dom.Element, error) {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil, nil
	}
	return e.doc.wrap(p), nil
}

func (e *Element) NextSibling() (dom.Element, error) {
	s := e.n.NextSibling
	if s == nil || s.Type != html.ElementNode {
		return nil, nil
	}
	return e.doc.wrap(s), nil
}

func (e *Element) Query(selector string) (dom.Element, error) {
	return query(e.doc, e.n, selector)
}

func (e *Element) QueryAll(selector string) ([]dom.Element, error) {
	return queryAll(e.doc, e.n, selector)
}

func (e *Element) TextNodes() ([]dom.TextNode, error) {
	var out []dom.TextNode
	walkText(e.n, func(t *html.Node) bool {
		out = append(out, dom.TextNode{Text: t.Data, Parent: e.doc.wrap(t.Parent)})
		return true
	})
	return out, nil
}

func (e *Element) Same(other dom.Element) (bool, error) {
	o, ok := other.(*Element)
	if !ok || o == nil {
		return false, nil
	}
	return o.n == e.n, nil
}

func (e *Element) Click() error {
	e.doc.dispatchClick(e.n)
	return nil
}

func (e *Element) Clone() (dom.Element, error) {
	return e.doc.wrap(cloneNode(e.n)), nil
}

func (e *Element) SetAttr(name, value string) error {
	for i := range e.n.Attr {
		if e.n.Attr[i].Namespace == "" && e.n.Attr[i].Key == name {
			e.n.Attr[i].Val = value
			return nil
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

func (e *Element) SetStyle(property, value string) error {
	style, _, _ := e.Attr("style")
	var decls []string
	replaced := false
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		if strings.TrimSpace(name) == property {
			decl = property + ": " + value
			replaced = true
		}
		decls = append(decls, decl)
	}
	if !replaced {
		decls = append(decls, property+": "+value)
	}
	return e.SetAttr("style", strings.Join(decls, "; "))
}

func (e *Element) ReplaceText(substr, text string) (bool, error) {
	replaced := false
	walkText(e.n, func(t *html.Node) bool {
		if strings.Contains(t.Data, substr) {
			t.Data = text
			replaced = true
			return false
		}
		return true
	})
	return replaced, nil
}

func (e *Element) InsertAfter(ref dom.Element) error {
	r, err := e.doc.node(ref)
	if err != nil {
		return err
	}
	if r.Parent == nil {
		return fmt.Errorf("memdom: insert after detached node")
	}
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
	r.Parent.InsertBefore(e.n, r.NextSibling)
	e.doc.notify(r.Parent, []dom.Element{e})
	return nil
}

func (e *Element) OnClick(fn func()) error {
	e.doc.listeners[e.n] = append(e.doc.listeners[e.n], fn)
	return nil
}

// walkText visits text nodes under n in document order until fn
// returns false.
func walkText(n *html.Node, fn func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if !fn(c) {
				return false
			}
			continue
		}
		if !walkText(c, fn) {
			return false
		}
	}
	return true
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}
