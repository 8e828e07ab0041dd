// Package locate finds action elements relative to matched ones. Host
// markup carries no stable identifiers, so matching is structural (tag,
// role, attribute) plus text heuristics. Absence is routine: every
// function returns nil when nothing matches and reserves errors for
// backend failures.
package locate

import (
	"fmt"

	"github.com/hazyhaar/domclick/dom"
	"github.com/hazyhaar/domclick/match"
)

// Predicate tests an element.
type Predicate func(el dom.Element) (bool, error)

// Tag matches elements with the given lower-case tag name.
func Tag(name string) Predicate {
	return func(el dom.Element) (bool, error) {
		tag, err := el.Tag()
		return tag == name, err
	}
}

// HasAttr matches elements carrying the attribute, whatever its value.
func HasAttr(name string) Predicate {
	return func(el dom.Element) (bool, error) {
		_, ok, err := el.Attr(name)
		return ok, err
	}
}

// AttrEquals matches elements whose attribute equals value.
func AttrEquals(name, value string) Predicate {
	return func(el dom.Element) (bool, error) {
		v, ok, err := el.Attr(name)
		return ok && v == value, err
	}
}

// HasDescendant matches elements with at least one descendant matching
// the selector.
func HasDescendant(selector string) Predicate {
	return func(el dom.Element) (bool, error) {
		found, err := el.Query(selector)
		return found != nil, err
	}
}

// All matches when every predicate matches.
func All(preds ...Predicate) Predicate {
	return func(el dom.Element) (bool, error) {
		for _, p := range preds {
			ok, err := p(el)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// AnyOf matches when some predicate matches.
func AnyOf(preds ...Predicate) Predicate {
	return func(el dom.Element) (bool, error) {
		for _, p := range preds {
			ok, err := p(el)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// Ancestor walks parent links from start, inclusive, and returns the
// first element satisfying pred. It returns nil when the walk passes the
// root or start is nil.
func Ancestor(start dom.Element, pred Predicate) (dom.Element, error) {
	for cur := start; cur != nil; {
		ok, err := pred(cur)
		if err != nil {
			return nil, fmt.Errorf("locate: ancestor: %w", err)
		}
		if ok {
			return cur, nil
		}
		cur, err = cur.Parent()
		if err != nil {
			return nil, fmt.Errorf("locate: ancestor parent: %w", err)
		}
	}
	return nil, nil
}

// TextMatch is the result of TextMarker.
type TextMatch struct {
	// Element is the interactive element enclosing the marker text.
	Element dom.Element
	// Payload is the trimmed text following the marker.
	Payload string
}

// TextMarker scans text nodes under root in document order. For the
// first node whose trimmed text starts with marker it walks up from the
// node's parent, without reaching root, for an element satisfying pred,
// falling back to the parent itself. It returns nil when no text node
// starts with marker.
func TextMarker(root dom.Element, marker string, pred Predicate) (*TextMatch, error) {
	nodes, err := root.TextNodes()
	if err != nil {
		return nil, fmt.Errorf("locate: text nodes: %w", err)
	}
	for _, tn := range nodes {
		payload, ok := match.Prefix(tn.Text, marker)
		if !ok {
			continue
		}
		el, err := enclosing(root, tn.Parent, pred)
		if err != nil {
			return nil, err
		}
		if el == nil {
			el = tn.Parent
		}
		if el == nil {
			continue
		}
		return &TextMatch{Element: el, Payload: payload}, nil
	}
	return nil, nil
}

func enclosing(root, start dom.Element, pred Predicate) (dom.Element, error) {
	for cur := start; cur != nil; {
		same, err := cur.Same(root)
		if err != nil {
			return nil, fmt.Errorf("locate: compare root: %w", err)
		}
		if same {
			return nil, nil
		}
		ok, err := pred(cur)
		if err != nil {
			return nil, fmt.Errorf("locate: text marker: %w", err)
		}
		if ok {
			return cur, nil
		}
		cur, err = cur.Parent()
		if err != nil {
			return nil, fmt.Errorf("locate: text marker parent: %w", err)
		}
	}
	return nil, nil
}
