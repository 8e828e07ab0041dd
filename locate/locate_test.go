package locate

import (
	"testing"

	"github.com/hazyhaar/domclick/dom"
	"github.com/hazyhaar/domclick/dom/memdom"
)

const inbox = `<html><body><table><tbody>
<tr id="row1"><td><span email="ann@example.com" name="Ann">Ann</span></td><td><b id="subject">Hello</b></td></tr>
<tr id="row2"><td><span>nobody</span></td><td id="plain">x</td></tr>
</tbody></table>
<div id="menu" role="menu">
  <div id="reply" role="menuitem"><span>Reply</span></div>
  <div id="find" role="menuitem"><div class="icon"></div><span id="label">Find emails from Ann Example</span></div>
</div>
<div id="bare"><p id="p">Find emails from Bob</p></div>
</body></html>`

func parse(t *testing.T) *memdom.Document {
	t.Helper()
	doc, err := memdom.ParseString(inbox)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func byID(t *testing.T, doc *memdom.Document, id string) dom.Element {
	t.Helper()
	el, err := doc.Query("#" + id)
	if err != nil || el == nil {
		t.Fatalf("query #%s: %v %v", id, el, err)
	}
	return el
}

func attr(el dom.Element, name string) string {
	v, _, _ := el.Attr(name)
	return v
}

var emailRow = All(Tag("tr"), AnyOf(HasDescendant("[email]"), HasDescendant("[data-hovercard-id]")))

func TestAncestorFindsRow(t *testing.T) {
	doc := parse(t)
	row, err := Ancestor(byID(t, doc, "subject"), emailRow)
	if err != nil {
		t.Fatalf("Ancestor: %v", err)
	}
	if row == nil || attr(row, "id") != "row1" {
		t.Fatalf("row: got %v, want #row1", row)
	}
}

func TestAncestorNotFound(t *testing.T) {
	doc := parse(t)
	row, err := Ancestor(byID(t, doc, "plain"), emailRow)
	if err != nil {
		t.Fatalf("Ancestor: %v", err)
	}
	if row != nil {
		t.Errorf("row: got %v, want nil", row)
	}
}

func TestAncestorNilStart(t *testing.T) {
	row, err := Ancestor(nil, Tag("tr"))
	if row != nil || err != nil {
		t.Errorf("got %v %v, want nil nil", row, err)
	}
}

func TestAncestorInclusive(t *testing.T) {
	doc := parse(t)
	row := byID(t, doc, "row1")
	got, _ := Ancestor(row, Tag("tr"))
	if same, _ := got.Same(row); !same {
		t.Error("Ancestor must test the start element itself")
	}
}

var menuItem = AnyOf(AttrEquals("role", "menuitem"), HasAttr("act"))

func TestTextMarkerMenuItem(t *testing.T) {
	doc := parse(t)
	got, err := TextMarker(byID(t, doc, "menu"), "Find emails from", menuItem)
	if err != nil {
		t.Fatalf("TextMarker: %v", err)
	}
	if got == nil {
		t.Fatal("TextMarker: got nil")
	}
	if attr(got.Element, "id") != "find" {
		t.Errorf("element: got #%s, want #find", attr(got.Element, "id"))
	}
	if got.Payload != "Ann Example" {
		t.Errorf("payload: got %q", got.Payload)
	}
}

func TestTextMarkerFallsBackToParent(t *testing.T) {
	doc := parse(t)
	got, err := TextMarker(byID(t, doc, "bare"), "Find emails from", menuItem)
	if err != nil || got == nil {
		t.Fatalf("TextMarker: %v %v", got, err)
	}
	if attr(got.Element, "id") != "p" {
		t.Errorf("element: got #%s, want #p", attr(got.Element, "id"))
	}
	if got.Payload != "Bob" {
		t.Errorf("payload: got %q", got.Payload)
	}
}

func TestTextMarkerStopsAtRoot(t *testing.T) {
	doc := parse(t)
	// The label span is the root: its menuitem ancestor is outside the
	// subtree, so the parent of the text node (the root) is returned.
	label := byID(t, doc, "label")
	got, err := TextMarker(label, "Find emails from", menuItem)
	if err != nil || got == nil {
		t.Fatalf("TextMarker: %v %v", got, err)
	}
	if same, _ := got.Element.Same(label); !same {
		t.Errorf("element: got #%s, want #label", attr(got.Element, "id"))
	}
}

func TestTextMarkerNoMatch(t *testing.T) {
	doc := parse(t)
	got, err := TextMarker(byID(t, doc, "reply"), "Find emails from", menuItem)
	if got != nil || err != nil {
		t.Errorf("got %v %v, want nil nil", got, err)
	}
}
